// Package delivery pushes finished export files to their destination,
// currently an FTP drop the downstream sales tooling polls.
package delivery

import (
	"context"
	"net"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/resilience"
)

// FTPOptions configures the FTP uploader.
type FTPOptions struct {
	Username string
	Password string
	Timeout  time.Duration
	Retry    resilience.Policy
}

// FTPUploader uploads export files over FTP.
type FTPUploader struct {
	opts FTPOptions
}

// NewFTPUploader creates an uploader. Empty credentials fall back to
// anonymous login.
func NewFTPUploader(opts FTPOptions) *FTPUploader {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Username == "" {
		opts.Username = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTPUploader{opts: opts}
}

// parseFTPURL extracts host (with port) and directory path from an FTP
// URL like ftp://files.example.com/exports.
func parseFTPURL(rawURL string) (host string, dir string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "delivery: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("delivery: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if host == "" {
		return "", "", eris.New("delivery: empty host in ftp url")
	}
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	return host, u.Path, nil
}

// Upload stores the local file under its base name in the directory the
// FTP URL points at. Transient connection failures are retried with
// backoff; each attempt reopens the file and the connection.
func (f *FTPUploader) Upload(ctx context.Context, ftpURL, localPath string) error {
	host, dir, err := parseFTPURL(ftpURL)
	if err != nil {
		return err
	}
	remotePath := path.Join(dir, path.Base(localPath))

	_, err = resilience.Fetch(ctx, f.opts.Retry, "ftp upload", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.upload(ctx, host, remotePath, localPath)
	})
	if err != nil {
		return err
	}

	zap.L().Info("export uploaded",
		zap.String("host", host),
		zap.String("remote_path", remotePath),
	)
	return nil
}

func (f *FTPUploader) upload(ctx context.Context, host, remotePath, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return eris.Wrap(err, "delivery: open export file")
	}
	defer file.Close() //nolint:errcheck

	zap.L().Debug("ftp: connecting",
		zap.String("host", host),
		zap.String("remote_path", remotePath),
	)

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "delivery: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(f.opts.Username, f.opts.Password); err != nil {
		return eris.Wrap(err, "delivery: ftp login")
	}

	if err := conn.Stor(remotePath, file); err != nil {
		return eris.Wrap(err, "delivery: ftp store")
	}
	return nil
}
