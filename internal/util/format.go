package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// FormatBytes formats a byte count into a human-readable string.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// TruncatePath truncates a path from the left, keeping the rightmost part visible.
func TruncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen || maxLen < 4 {
		return path
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

// TruncateText shortens s to maxWidth display cells, ending it with "...".
func TruncateText(s string, maxWidth int) string {
	if maxWidth < 4 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+3 > maxWidth {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// PadToWidth right-pads s with spaces to width display cells.
func PadToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}
