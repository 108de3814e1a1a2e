package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/rovshanmuradov/solana-amm/internal/logger"
	"github.com/rovshanmuradov/solana-amm/internal/ui/style"
)

// LogPane показывает хвост кольцевого буфера логов.
type LogPane struct {
	buffer    *logger.LogBuffer
	viewport  viewport.Model
	showDebug bool
}

// NewLogPane creates a pane over the process log buffer. buffer may be nil.
func NewLogPane(buffer *logger.LogBuffer, width, height int) *LogPane {
	return &LogPane{
		buffer:   buffer,
		viewport: viewport.New(width, height),
	}
}

// SetSize sets the pane dimensions
func (p *LogPane) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}

// ToggleDebug включает или скрывает debug записи.
func (p *LogPane) ToggleDebug() {
	p.showDebug = !p.showDebug
}

// Refresh перечитывает буфер и прокручивает к последней записи.
func (p *LogPane) Refresh() {
	if p.buffer == nil {
		p.viewport.SetContent(style.MutedStyle.Render("logging to file only"))
		return
	}

	entries := p.buffer.GetRecentLogs(200)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Level == "debug" && !p.showDebug {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			style.LabelStyle.Render(e.Timestamp.Format("15:04:05")),
			style.Severity(e.Level).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level))),
			e.Message))
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
	p.viewport.GotoBottom()
}

// View renders the pane
func (p *LogPane) View() string {
	return p.viewport.View()
}
