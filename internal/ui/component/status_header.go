package component

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/solana-amm/internal/ui/style"
)

// StatusHeader верхняя строка дашборда: программа, режим и счётчики.
type StatusHeader struct {
	Program string
	Mode    string
	Swaps   int
	Failed  int
	Alerts  int
	Running bool
	Updated time.Time
	width   int
}

// SetWidth sets the rendered width.
func (h *StatusHeader) SetWidth(width int) {
	h.width = width
}

// View renders the header
func (h *StatusHeader) View() string {
	state := style.SuccessStyle.Render("● running")
	if !h.Running {
		state = style.MutedStyle.Render("○ finished")
	}

	alerts := style.SuccessStyle.Render("0 alerts")
	if h.Alerts > 0 {
		alerts = style.ErrorStyle.Render(fmt.Sprintf("%d alerts", h.Alerts))
	}

	updated := "-"
	if !h.Updated.IsZero() {
		updated = h.Updated.Format("15:04:05")
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		style.TitleStyle.Render("AMM "),
		style.LabelStyle.Render(ShortKey(h.Program)+"  "),
		style.SubHeaderStyle.Render(h.Mode+"  "),
		state, "  ",
		style.ValueStyle.Render(fmt.Sprintf("swaps %d", h.Swaps)), "  ",
		style.WarningStyle.Render(fmt.Sprintf("failed %d", h.Failed)), "  ",
		alerts, "  ",
		style.LabelStyle.Render("updated "+updated),
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.DefaultPalette().Primary).
		Padding(0, 1)
	if h.width > 0 {
		box = box.Width(h.width - 2)
	}
	return box.Render(line)
}

// ShortKey сокращает base58 адрес до вида abcd…wxyz.
func ShortKey(key string) string {
	if len(key) <= 12 {
		return key
	}
	return key[:4] + "…" + key[len(key)-4:]
}
