package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/HaydarovAkbar/HikVision/internal/client"
	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/export"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/fatih/color"
	"github.com/spf13/viper"
)

// setupClient builds a client from the merged flag, env and file configuration.
func setupClient() *client.HikvisionClient {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		fail("Error: invalid configuration: %v", err)
	}
	return client.New(cfg)
}

// fail prints a red diagnostic and exits 1.
func fail(format string, a ...any) {
	color.New(color.FgRed).Printf(format+"\n", a...)
	os.Exit(1)
}

// explain turns client errors into a hint the operator can act on.
func explain(err error) string {
	var reqErr *client.RequestFailedError
	if errors.As(err, &reqErr) && reqErr.IsAuth() {
		return fmt.Sprintf("%v (check username and password)", err)
	}
	var tErr *client.TransportError
	if errors.As(err, &tErr) {
		return fmt.Sprintf("%v (check the device address, port and network)", err)
	}
	return err.Error()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("Error encoding JSON: %v", err)
	}
}

// printRecords prints flattened records as a table of the given columns.
func printRecords(records xmltree.List, columns ...string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	header := make([]string, len(columns))
	rule := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
		rule[i] = strings.Repeat("-", len(c))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	fmt.Fprintln(w, strings.Join(rule, "\t"))

	row := make([]string, len(columns))
	for _, n := range records {
		m, _ := n.(*xmltree.Map)
		for i, c := range columns {
			row[i] = cell(m, c)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// cell renders one value of a flattened record for a table.
func cell(m *xmltree.Map, key string) string {
	n, ok := m.Get(key)
	if !ok {
		return "-"
	}
	switch v := n.(type) {
	case xmltree.Scalar:
		if v == "" {
			return "-"
		}
		return string(v)
	case *xmltree.Map:
		if s, ok := v.Scalar(xmltree.TextKey); ok {
			return s
		}
	}
	b, err := json.Marshal(n)
	if err != nil {
		return "?"
	}
	return string(b)
}

// exportRecords writes v to path, picking the format from the flag or the extension.
func exportRecords(path, format string, v any) {
	f, err := export.ParseFormat(format, path)
	if err != nil {
		fail("Error: %v", err)
	}
	if err := export.Write(export.Target{Path: path, Format: f}, v); err != nil {
		fail("Error: %v", err)
	}
	color.Green("Saved %s", path)
}
