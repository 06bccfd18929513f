package helpers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/greeddj/binrepo-store/internal/binrepo/config"
	binrepoHelpers "github.com/greeddj/binrepo-store/internal/binrepo/helpers"
	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"
)

// Table collects rows for column-aligned output.
type Table struct {
	Header []string
	Rows   [][]string
}

// Add appends a row.
func (t *Table) Add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes v as JSON or YAML, or table as aligned columns.
func Render(w io.Writer, format string, v any, table *Table) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatTable, "":
		return renderTable(w, table)
	default:
		return fmt.Errorf("%w: %s", binrepoHelpers.ErrUnsupportedFormat, format)
	}
}

func renderTable(w io.Writer, table *Table) error {
	if table == nil || len(table.Rows) == 0 {
		return nil
	}
	t := uitable.New()
	t.MaxColWidth = tableMaxColWidth
	t.Wrap = true
	t.Separator = tableSeparator
	if len(table.Header) > 0 {
		t.AddRow(cells(table.Header)...)
	}
	for _, row := range table.Rows {
		t.AddRow(cells(row)...)
	}
	_, err := fmt.Fprintln(w, t)
	return err
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, cell := range row {
		out[i] = cell
	}
	return out
}
