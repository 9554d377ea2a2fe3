package export

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/handwerk-leads/leads-cli/internal/model"
)

// utf8BOM makes Excel open the file with the right encoding; German
// names and addresses are mangled without it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes leads to path as UTF-8 CSV with a BOM.
func WriteCSV(path string, leads []model.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create csv file")
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Write(utf8BOM); err != nil {
		return eris.Wrap(err, "export: write bom")
	}

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, l := range leads {
		if err := w.Write(leadRow(l)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}

	if err := f.Close(); err != nil {
		return eris.Wrap(err, "export: close csv file")
	}
	return nil
}
