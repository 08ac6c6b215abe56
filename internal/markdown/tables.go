// Package markdown adapts assistant markdown to what WhatsApp renders:
// citation stripping, bold collapsing and table flattening.
package markdown

import "strings"

// TableMode specifies how to handle markdown tables.
type TableMode string

const (
	// TableModeOff leaves tables unchanged.
	TableModeOff TableMode = "off"
	// TableModeBullets converts tables to bullet lists.
	TableModeBullets TableMode = "bullets"
	// TableModeCode wraps tables in code blocks.
	TableModeCode TableMode = "code"
)

// IsValidTableMode checks if a mode string is valid. Empty is accepted and
// means the channel default.
func IsValidTableMode(mode string) bool {
	switch TableMode(strings.ToLower(mode)) {
	case TableModeOff, TableModeBullets, TableModeCode, "":
		return true
	default:
		return false
	}
}

// ParseTableMode parses a table mode string, returning the default if invalid.
func ParseTableMode(mode string, defaultMode TableMode) TableMode {
	m := TableMode(strings.ToLower(strings.TrimSpace(mode)))
	switch m {
	case TableModeOff, TableModeBullets, TableModeCode:
		return m
	default:
		return defaultMode
	}
}

// DefaultTableModeForChannel returns the default table mode for a channel.
func DefaultTableModeForChannel(channel string) TableMode {
	switch strings.ToLower(channel) {
	case "whatsapp", "sms":
		return TableModeBullets
	default:
		return TableModeOff
	}
}

// Table is a markdown table found in a block of lines.
type Table struct {
	Headers []string
	Rows    [][]string
	// first and last line (exclusive) of the table in the source lines
	start, end int
}

// ConvertTables rewrites every markdown table in text according to mode.
func ConvertTables(text string, mode TableMode) string {
	if mode == TableModeOff || mode == "" || !strings.Contains(text, "|") {
		return text
	}

	lines := strings.Split(text, "\n")
	tables := findTables(lines)
	if len(tables) == 0 {
		return text
	}

	out := make([]string, 0, len(lines))
	next := 0
	for _, table := range tables {
		out = append(out, lines[next:table.start]...)
		switch mode {
		case TableModeBullets:
			out = append(out, table.bullets()...)
		case TableModeCode:
			out = append(out, "```")
			out = append(out, lines[table.start:table.end]...)
			out = append(out, "```")
		default:
			out = append(out, lines[table.start:table.end]...)
		}
		next = table.end
	}
	out = append(out, lines[next:]...)
	return strings.Join(out, "\n")
}

func findTables(lines []string) []Table {
	var tables []Table
	for i := 0; i < len(lines); {
		table, ok := parseTable(lines, i)
		if !ok {
			i++
			continue
		}
		tables = append(tables, table)
		i = table.end
	}
	return tables
}

// parseTable reads a header row, a separator row and at least one data row
// starting at lines[idx].
func parseTable(lines []string, idx int) (Table, bool) {
	if idx+2 >= len(lines) || !isTableRow(lines[idx]) || !isSeparatorRow(lines[idx+1]) {
		return Table{}, false
	}

	table := Table{Headers: splitCells(lines[idx]), start: idx}
	end := idx + 2
	for end < len(lines) && isTableRow(lines[end]) {
		cells := splitCells(lines[end])
		for len(cells) < len(table.Headers) {
			cells = append(cells, "")
		}
		table.Rows = append(table.Rows, cells)
		end++
	}
	if len(table.Rows) == 0 {
		return Table{}, false
	}
	table.end = end
	return table, true
}

func isTableRow(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) >= 3 && line[0] == '|' && line[len(line)-1] == '|'
}

func isSeparatorRow(line string) bool {
	if !isTableRow(line) {
		return false
	}
	hasDash := false
	for _, r := range strings.TrimSpace(line) {
		switch r {
		case '-':
			hasDash = true
		case '|', ':', ' ', '\t':
		default:
			return false
		}
	}
	return hasDash
}

func splitCells(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")

	parts := strings.Split(row, "|")
	cells := make([]string, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, strings.TrimSpace(part))
	}
	return cells
}

// bullets renders one "• header: cell | header: cell" line per data row.
func (t Table) bullets() []string {
	lines := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		var parts []string
		for i, cell := range row {
			if cell == "" {
				continue
			}
			if i < len(t.Headers) && t.Headers[i] != "" {
				parts = append(parts, t.Headers[i]+": "+cell)
			} else {
				parts = append(parts, cell)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, "• "+strings.Join(parts, " | "))
		}
	}
	return lines
}
