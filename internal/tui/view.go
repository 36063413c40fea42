package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
	"github.com/JohnDeved/crackmes-cli/internal/util"
)

// chromeLines is the number of lines around the list: title, prompt, two
// rules and the status bar.
const chromeLines = 5

func (m Model) listHeight() int {
	return max(m.height-chromeLines, 1)
}

func (m *Model) normalizeViewport() {
	total := len(m.session.Visible())
	cursor, ok := m.session.Cursor()
	if !ok || total == 0 {
		m.offset = 0
		return
	}
	height := m.listHeight()
	if m.offset < 0 {
		m.offset = 0
	}
	if cursor < m.offset {
		m.offset = cursor
	}
	if cursor >= m.offset+height {
		m.offset = cursor - height + 1
	}
	if maxOffset := max(total-height, 0); m.offset > maxOffset {
		m.offset = maxOffset
	}
}

// View renders the current state, except while a fetch is pending: then the
// last idle frame is shown, so the screen never reflects a half-applied key.
func (m Model) View() string {
	if m.busy {
		if m.frame == "" {
			return m.spinner.View() + " Loading..."
		}
		return m.frame
	}
	return m.render()
}

func (m Model) render() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("  crackmes.one  "))
	sb.WriteString(subtitleStyle.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(searchPromptStyle.Render("> "))
	sb.WriteString(m.session.Query())
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	listWidth := m.width * 3 / 5
	detailWidth := m.width - listWidth
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(listWidth).Height(m.listHeight()).Render(m.listView(listWidth)),
		m.detailView(detailWidth),
	)
	sb.WriteString(body)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Width(m.width).Render(m.statusLine()))

	return sb.String()
}

func (m Model) listView(width int) string {
	visible := m.session.Visible()
	if len(visible) == 0 {
		return helpStyle.Render("  No matches for current query.")
	}

	cursor, _ := m.session.Cursor()
	end := min(m.offset+m.listHeight(), len(visible))
	rowWidth := max(width-selectedStyle.GetHorizontalFrameSize(), 12)

	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		lines = append(lines, renderRow(m.session.Record(visible[i]), rowWidth, i == cursor))
	}
	return strings.Join(lines, "\n")
}

func renderRow(r *crackme.Record, rowWidth int, isSelected bool) string {
	rating := ratingStyle.Render(crackme.FormatRating(r.Stats.Difficulty) + "/" + crackme.FormatRating(r.Stats.Quality))
	nameWidth := max(rowWidth-lipgloss.Width(rating)-4, 8)
	label := util.TruncateText(r.Title(), nameWidth)
	if idx := strings.LastIndex(label, " by "); idx >= 0 && !isSelected {
		label = label[:idx] + authorStyle.Render(label[idx:])
	}

	prefix := "   "
	if isSelected {
		prefix = ">> "
	}
	line := prefix + util.PadToWidth(label, nameWidth) + " " + rating
	if isSelected {
		return selectedStyle.Render(util.PadToWidth(line, rowWidth))
	}
	return normalStyle.Render(util.PadToWidth(line, rowWidth))
}

func (m Model) detailView(width int) string {
	inner := max(width-borderStyle.GetHorizontalFrameSize(), 10)
	style := borderStyle.Width(inner).Height(max(m.listHeight()-borderStyle.GetVerticalFrameSize(), 1))

	r := m.session.Current()
	if r == nil {
		return style.Render(helpStyle.Render("nothing selected"))
	}

	return style.Render(r.String())
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	visible := m.session.Visible()
	cursor, ok := m.session.Cursor()
	pos := 0
	if ok {
		pos = cursor + 1
	}
	return fmt.Sprintf("%d/%d  Up/Down, ctrl+k/j: move  type: filter  Enter: download  Esc: quit",
		pos, len(visible))
}
