package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/journey-mapper/internal/bowtie"
	"github.com/sells-group/journey-mapper/internal/visual"
)

const stageWidth = 20

var (
	emphasized = lipgloss.Color("#319AFB")
	muted      = lipgloss.Color("#555970")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56")).Bold(true)
	detailStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(emphasized).Padding(0, 1)
	cursorStyle = lipgloss.NewStyle().Foreground(emphasized).Bold(true)
)

// stageColor maps the rendered color to a terminal color.
func stageColor(r visual.StageRender) lipgloss.Color {
	if r.Color == visual.ColorEmphasized {
		return emphasized
	}
	return muted
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Bowtie journey · " + m.snap.TenantID))
	if m.snap.MappingSource != "" {
		b.WriteString(faintStyle.Render(fmt.Sprintf("  (mapping: %s)", m.snap.MappingSource)))
	}
	b.WriteString("\n")
	if e := m.snap.Entity; e != nil {
		pos := "not on the bowtie"
		if st, ok := bowtie.Lookup(m.snap.Position); ok {
			pos = st.Name
		}
		fmt.Fprintf(&b, "Contact: %s · %s\n", e.DisplayName(), pos)
	}
	b.WriteString("\n")

	boxes := make([]string, 0, len(m.snap.Stages))
	for i, r := range m.snap.Stages {
		boxes = append(boxes, renderStage(i+1, r))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n")

	if n := m.snap.Notice; n != nil {
		hint := "d to dismiss"
		if n.Retryable {
			hint += ", r to retry"
		}
		b.WriteString(noticeStyle.Render("! "+n.Message) + faintStyle.Render("  ("+hint+")"))
		b.WriteString("\n")
	}

	if st := m.snap.Selected; st != nil && !m.hideDetail {
		var d strings.Builder
		d.WriteString(titleStyle.Render(st.Name) + "\n")
		d.WriteString(st.Description + "\n")
		if len(st.Metrics) > 0 {
			d.WriteString("\nMetrics: " + strings.Join(st.Metrics, ", "))
		}
		if len(st.Touchpoints) > 0 {
			d.WriteString("\nTouchpoints: " + strings.Join(st.Touchpoints, ", "))
		}
		width := 6*(stageWidth+2) - 4
		if m.width > 0 && m.width-4 < width {
			width = m.width - 4
		}
		b.WriteString(detailStyle.Width(width).Render(d.String()))
		b.WriteString("\n")
	}

	if m.searching {
		b.WriteString("Search: " + m.input.View() + "\n")
		for i, r := range m.results {
			line := fmt.Sprintf("  %s <%s>", r.DisplayName(), r.Email)
			if i == m.cursor {
				line = cursorStyle.Render("> " + line[2:])
			}
			b.WriteString(line + "\n")
		}
		if m.searchError != "" {
			b.WriteString(noticeStyle.Render(m.searchError) + "\n")
		}
	}

	if m.busy != "" {
		b.WriteString(faintStyle.Render(m.busy+"...") + "\n")
	}
	b.WriteString(faintStyle.Render("1-6 toggle · / search · c clear contact · r regenerate · esc close detail · q quit"))
	return b.String()
}

func renderStage(n int, r visual.StageRender) string {
	var b strings.Builder
	marker := " "
	if r.Marker {
		marker = "●"
	}
	fmt.Fprintf(&b, "%d %s %s\n", n, r.Name, marker)
	for _, l := range r.Inbound {
		b.WriteString("← " + l + "\n")
	}
	if r.ConnectorsVisible {
		for _, c := range r.Connectors {
			b.WriteString(faintStyle.Render("→ "+c) + "\n")
		}
	}

	style := lipgloss.NewStyle().
		Width(stageWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(stageColor(r)).
		Padding(0, 1)
	if r.Emphasized {
		style = style.Bold(true)
	}
	// Active stages sit one row higher than the rest.
	if r.Lift == 0 {
		style = style.MarginTop(1)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}
