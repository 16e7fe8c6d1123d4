package types

import (
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatFieldsTable renders a field→value mapping as a markdown table for
// prompt context. Rows are sorted by field name so prompts are stable.
func FormatFieldsTable(title string, fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	for _, name := range names {
		_ = table.Append(name, fields[name])
	}
	_ = table.Render()
	return buf.String()
}

// FormatFieldList renders field names as a markdown bullet list.
func FormatFieldList(title string, names []string) string {
	if len(names) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# " + title + ":\n")
	for _, name := range names {
		buf.WriteString("- " + name + "\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}
