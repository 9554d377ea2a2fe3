package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// WriteXLSX writes leads to path as a single-sheet workbook.
func WriteXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		for _, cell := range leadRow(l) {
			row.AddCell().SetString(cell)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}
