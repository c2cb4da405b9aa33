package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
)

// CSV writes rows with a header taken from the first row. Rows are structs (columns named
// by their json tags), *xmltree.Map or map[string]string. Nested values are written as JSON.
// Every row must carry exactly the header's fields.
func CSV[T any](path string, rows []T) error {
	if len(rows) == 0 {
		return &ExportFailure{Path: path, Cause: ErrEmpty}
	}

	records := make([]record, 0, len(rows))
	for i, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return &ExportFailure{Path: path, Cause: fmt.Errorf("row %d: %w", i, err)}
		}
		records = append(records, rec)
	}

	header := records[0].keys
	for i, rec := range records[1:] {
		if err := rec.match(header, i+1); err != nil {
			return &ExportFailure{Path: path, Cause: err}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return &ExportFailure{Path: path, Cause: err}
	}
	line := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			line[i] = rec.values[k]
		}
		if err := w.Write(line); err != nil {
			return &ExportFailure{Path: path, Cause: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &ExportFailure{Path: path, Cause: err}
	}

	if err := writeFile(path, buf.Bytes()); err != nil {
		return &ExportFailure{Path: path, Cause: err}
	}
	return nil
}

type record struct {
	keys   []string
	values map[string]string
}

func (r record) match(header []string, row int) error {
	var mismatch SchemaMismatchError
	for _, k := range header {
		if _, ok := r.values[k]; !ok {
			mismatch.Missing = append(mismatch.Missing, k)
		}
	}
	want := make(map[string]struct{}, len(header))
	for _, k := range header {
		want[k] = struct{}{}
	}
	for _, k := range r.keys {
		if _, ok := want[k]; !ok {
			mismatch.Extra = append(mismatch.Extra, k)
		}
	}
	if mismatch.Missing == nil && mismatch.Extra == nil {
		return nil
	}
	mismatch.Row = row
	return &mismatch
}

func toRecord(v any) (record, error) {
	switch r := v.(type) {
	case *xmltree.Map:
		if r == nil {
			return record{}, errors.New("nil record")
		}
		rec := record{keys: r.Keys(), values: make(map[string]string, r.Len())}
		for _, k := range rec.keys {
			n, _ := r.Get(k)
			if s, ok := n.(xmltree.Scalar); ok {
				rec.values[k] = string(s)
				continue
			}
			b, err := encode(n)
			if err != nil {
				return record{}, err
			}
			rec.values[k] = string(b)
		}
		return rec, nil
	case map[string]string:
		rec := record{values: r}
		for k := range r {
			rec.keys = append(rec.keys, k)
		}
		sort.Strings(rec.keys)
		return rec, nil
	}
	return structRecord(reflect.ValueOf(v))
}

func structRecord(rv reflect.Value) (record, error) {
	if !rv.IsValid() {
		return record{}, errors.New("nil record")
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return record{}, errors.New("nil record")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return record{}, fmt.Errorf("unsupported record type %s", rv.Type())
	}

	rt := rv.Type()
	rec := record{values: make(map[string]string, rt.NumField())}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		cell, err := cellOf(rv.Field(i))
		if err != nil {
			return record{}, fmt.Errorf("field %s: %w", name, err)
		}
		rec.keys = append(rec.keys, name)
		rec.values[name] = cell
	}
	return rec, nil
}

func cellOf(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	}
	b, err := encode(v.Interface())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// rowsOf spreads a slice held in an interface into its elements.
func rowsOf(v any) ([]any, error) {
	if list, ok := v.(xmltree.List); ok {
		rows := make([]any, 0, len(list))
		for i, n := range list {
			m, isMap := n.(*xmltree.Map)
			if !isMap {
				return nil, fmt.Errorf("row %d: not a record", i)
			}
			rows = append(rows, m)
		}
		return rows, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("csv export needs a list of records, got %T", v)
	}
	rows := make([]any, rv.Len())
	for i := range rows {
		rows[i] = rv.Index(i).Interface()
	}
	return rows, nil
}
