// Package export writes collected records to JSON and CSV files.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmpty is returned for a CSV export without rows. No file is created.
var ErrEmpty = errors.New("no records to export")

// ExportFailure wraps every error raised while exporting to Path.
type ExportFailure struct {
	Path  string
	Cause error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Cause)
}

func (e *ExportFailure) Unwrap() error {
	return e.Cause
}

// SchemaMismatchError is a CSV row whose fields differ from the header row.
type SchemaMismatchError struct {
	Row     int
	Missing []string
	Extra   []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Extra, ", "))
	}
	return fmt.Sprintf("row %d does not match header: %s", e.Row, strings.Join(parts, "; "))
}

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts a flag value. An empty value is inferred from the file extension.
func ParseFormat(value, path string) (Format, error) {
	if value == "" {
		value = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	switch f := Format(strings.ToLower(value)); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want json or csv)", value)
}

// Target is a destination file and the format to write it in.
type Target struct {
	Path   string
	Format Format
}

// Write exports v to t. CSV targets take a slice of records.
func Write(t Target, v any) error {
	switch t.Format {
	case FormatJSON:
		return JSON(t.Path, v)
	case FormatCSV:
		rows, err := rowsOf(v)
		if err != nil {
			return &ExportFailure{Path: t.Path, Cause: err}
		}
		return CSV(t.Path, rows)
	}
	return &ExportFailure{Path: t.Path, Cause: fmt.Errorf("unsupported export format %q", t.Format)}
}

// JSON writes v as indented UTF-8 JSON. Field order follows struct declaration or, for
// flattened documents, document order.
func JSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return &ExportFailure{Path: path, Cause: err}
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return &ExportFailure{Path: path, Cause: err}
	}
	return nil
}

// writeFile replaces path with data through a temporary file in the same directory, so a
// failed export never leaves a partial file behind.
func writeFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
