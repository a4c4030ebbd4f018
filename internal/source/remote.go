package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// maxRemoteBytes caps a downloaded workbook.
const maxRemoteBytes = 64 << 20

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// loadRemote downloads the source once. The format comes from the URL path
// extension, falling back to the response Content-Type.
func loadRemote(ctx context.Context, location string, opts Options) (grid, Format, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return grid{}, "", err
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return grid{}, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return grid{}, "", fmt.Errorf("fetching %s: unexpected status %s", location, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return grid{}, "", err
	}
	if len(body) > maxRemoteBytes {
		return grid{}, "", fmt.Errorf("fetching %s: body exceeds %d bytes", location, maxRemoteBytes)
	}

	format, err := remoteFormat(location, resp.Header.Get("Content-Type"))
	if err != nil {
		return grid{}, "", err
	}

	var g grid
	switch format {
	case FormatXLSX:
		g, err = readXLSX(bytes.NewReader(body), opts.Sheet)
	case FormatCSV:
		g, err = readCSV(bytes.NewReader(body))
	case FormatSQLite:
		g, err = readSQLiteBytes(body, opts.Table)
	}
	return g, format, err
}

func remoteFormat(location, contentType string) (Format, error) {
	if u, err := url.Parse(location); err == nil {
		if f, err := detect(path.Base(u.Path)); err == nil {
			return f, nil
		}
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	case "text/csv":
		return FormatCSV, nil
	case "application/vnd.sqlite3", "application/x-sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("cannot tell the format of %s (content type %q)", location, contentType)
}

// readSQLiteBytes spills a downloaded database to a temp file so the driver
// can open it.
func readSQLiteBytes(body []byte, table string) (grid, error) {
	f, err := os.CreateTemp("", "lineouts-*.db")
	if err != nil {
		return grid{}, err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(body); err != nil {
		f.Close()
		return grid{}, err
	}
	if err := f.Close(); err != nil {
		return grid{}, err
	}
	return readSQLite(f.Name(), table)
}
