package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/arthur-debert/pipestore/record"
	"github.com/arthur-debert/pipestore/storage"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// OutputFormatter renders command results.
type OutputFormatter struct {
	format string
	title  cases.Caser
}

// NewOutputFormatter returns a formatter for format, defaulting to table.
func NewOutputFormatter(format string) (*OutputFormatter, error) {
	switch strings.ToLower(format) {
	case "", OutputTable:
		format = OutputTable
	case OutputJSON, OutputYAML:
		format = strings.ToLower(format)
	default:
		return nil, NewValidationError("format output", "output format", format, "Use table, json or yaml")
	}
	return &OutputFormatter{format: format, title: cases.Title(language.Und)}, nil
}

// Write renders v to w. v is a record, a list of records or a scalar.
func (f *OutputFormatter) Write(w io.Writer, v any) error {
	if rec, ok := v.(*record.Map); ok && rec == nil {
		if f.format == OutputTable {
			_, err := fmt.Fprintln(w, "No record found")
			return err
		}
		v = nil
	}

	switch f.format {
	case OutputJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case OutputYAML:
		data, err := storage.MarshalYAML(v)
		if err != nil {
			return fmt.Errorf("failed to encode yaml output: %w", err)
		}
		_, err = w.Write(data)
		return err
	}

	switch t := v.(type) {
	case []*record.Map:
		return f.table(w, t)
	case *record.Map:
		return f.keyValues(w, t)
	default:
		_, err := fmt.Fprintln(w, cell(v))
		return err
	}
}

func (f *OutputFormatter) table(w io.Writer, recs []*record.Map) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No records found")
		return err
	}

	var columns []string
	seen := make(map[string]bool)
	for _, rec := range recs {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = f.title.String(strings.TrimPrefix(col, "_"))
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, rec := range recs {
		cells := make([]string, len(columns))
		for i, col := range columns {
			v, _ := rec.Get(col)
			cells[i] = cell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func (f *OutputFormatter) keyValues(w io.Writer, rec *record.Map) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rec.Range(func(k string, v any) bool {
		fmt.Fprintf(tw, "%s:\t%s\n", f.title.String(strings.TrimPrefix(k, "_")), cell(v))
		return true
	})
	return tw.Flush()
}

// cell renders a value on one line. Nested values are shown as compact
// JSON.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case *record.Map, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	default:
		return record.ToString(t)
	}
}
