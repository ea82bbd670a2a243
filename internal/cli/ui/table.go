package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders aligned columns with a coloured header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, noColor: noColor}
}

// AddRow appends a row; missing cells render empty, extra cells are dropped
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len returns the number of rows added
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(widths) && i < len(row); i++ {
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	head := color.New(color.Bold, color.FgCyan)
	rule := color.New(color.FgHiBlack)
	if t.noColor {
		head.DisableColor()
		rule.DisableColor()
	}

	for i, h := range t.headers {
		head.Fprint(t.writer, cell(h, widths[i], i == len(widths)-1))
	}
	fmt.Fprintln(t.writer)
	for i, w := range widths {
		sep := "  "
		if i == len(widths)-1 {
			sep = ""
		}
		rule.Fprint(t.writer, strings.Repeat("─", w)+sep)
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i := range widths {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			fmt.Fprint(t.writer, cell(v, widths[i], i == len(widths)-1))
		}
		fmt.Fprintln(t.writer)
	}
}

func cell(s string, width int, last bool) string {
	if last {
		return s
	}
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s + "  "
}

// KeyValues renders "key: value" lines with aligned values
type KeyValues struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValues creates an empty key/value list
func NewKeyValues(w io.Writer, noColor bool) *KeyValues {
	return &KeyValues{writer: w, noColor: noColor}
}

// Add appends a pair
func (kv *KeyValues) Add(key, value string) {
	kv.keys = append(kv.keys, key)
	kv.values = append(kv.values, value)
}

// Render writes the pairs
func (kv *KeyValues) Render() {
	width := 0
	for _, k := range kv.keys {
		if n := utf8.RuneCountInString(k) + 1; n > width {
			width = n
		}
	}
	key := color.New(color.FgCyan, color.Bold)
	if kv.noColor {
		key.DisableColor()
	}
	for i, k := range kv.keys {
		label := k + ":"
		key.Fprint(kv.writer, label+strings.Repeat(" ", width-utf8.RuneCountInString(label)))
		fmt.Fprintf(kv.writer, " %s\n", kv.values[i])
	}
}
