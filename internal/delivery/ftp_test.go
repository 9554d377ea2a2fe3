package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		wantHost string
		wantDir  string
		wantErr  bool
	}{
		{"default port", "ftp://files.example.com/exports", "files.example.com:21", "/exports", false},
		{"explicit port", "ftp://files.example.com:2121/exports", "files.example.com:2121", "/exports", false},
		{"root path", "ftp://files.example.com", "files.example.com:21", "", false},
		{"wrong scheme", "https://files.example.com/exports", "", "", true},
		{"no host", "ftp:///exports", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			host, dir, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantDir, dir)
		})
	}
}

func TestNewFTPUploaderDefaults(t *testing.T) {
	t.Parallel()

	u := NewFTPUploader(FTPOptions{})
	assert.Equal(t, "anonymous", u.opts.Username)
	assert.NotZero(t, u.opts.Timeout)

	auth := NewFTPUploader(FTPOptions{Username: "leads", Password: "secret"})
	assert.Equal(t, "leads", auth.opts.Username)
	assert.Equal(t, "secret", auth.opts.Password)
}
