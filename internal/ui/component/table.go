package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/solana-amm/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow строка таблицы. Level выбирает цвет строки, пустой уровень
// рисуется обычным текстом.
type TableRow struct {
	Data  []string
	Level string
}

// Table показывает последние строки и прокручивается вверх по истории.
type Table struct {
	columns []TableColumn
	rows    []TableRow
	height  int
	offset  int // строк от конца

	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
}

// NewTable creates a new table component
func NewTable(columns ...TableColumn) *Table {
	palette := style.DefaultPalette()
	return &Table{
		columns: columns,
		height:  10,
		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true),
		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text),
	}
}

// SetHeight задаёт число видимых строк данных.
func (t *Table) SetHeight(height int) *Table {
	if height < 1 {
		height = 1
	}
	t.height = height
	t.clampOffset()
	return t
}

// SetRows replaces the rows, keeping the scroll position.
func (t *Table) SetRows(rows []TableRow) *Table {
	t.rows = rows
	t.clampOffset()
	return t
}

// ScrollUp moves the window towards older rows.
func (t *Table) ScrollUp() *Table {
	t.offset++
	t.clampOffset()
	return t
}

// ScrollDown moves the window towards the newest rows.
func (t *Table) ScrollDown() *Table {
	if t.offset > 0 {
		t.offset--
	}
	return t
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Visible returns the rows currently in the window, oldest first.
func (t *Table) Visible() []TableRow {
	end := len(t.rows) - t.offset
	start := end - t.height
	if start < 0 {
		start = 0
	}
	return t.rows[start:end]
}

func (t *Table) clampOffset() {
	maxOffset := len(t.rows) - t.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.offset > maxOffset {
		t.offset = maxOffset
	}
}

// View renders the table
func (t *Table) View() string {
	var b strings.Builder

	headers := make([]string, len(t.columns))
	seps := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = renderCell(col.Header, col, t.headerStyle)
		seps[i] = strings.Repeat("─", col.Width)
	}
	b.WriteString(strings.Join(headers, "│"))
	b.WriteString("\n")
	b.WriteString(strings.Join(seps, "┼"))

	for _, row := range t.Visible() {
		st := t.rowStyle
		if row.Level != "" {
			st = style.Severity(row.Level)
		}
		cells := make([]string, len(t.columns))
		for i, col := range t.columns {
			value := ""
			if i < len(row.Data) {
				value = row.Data[i]
			}
			cells[i] = renderCell(value, col, st)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, "│"))
	}
	return b.String()
}

// renderCell обрезает значение по ширине колонки и выравнивает его.
func renderCell(content string, col TableColumn, st lipgloss.Style) string {
	if r := []rune(content); len(r) > col.Width {
		if col.Width > 3 {
			content = string(r[:col.Width-3]) + "..."
		} else {
			content = string(r[:col.Width])
		}
	}
	return st.Width(col.Width).Align(col.Align).Render(content)
}
