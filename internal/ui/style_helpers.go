package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders text fragments on a fixed background. Lipgloss leaves the
// gaps between separately rendered fragments unstyled, so spaces are styled
// explicitly.
type BgStyle struct {
	bg    lipgloss.Color
	space string // cached styled space
}

// NewBgStyle creates a background style helper for the given color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render renders text with style, applying the background to every
// character including interior spaces.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	wordStyle := style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return wordStyle.Render(text)
	}
	words := strings.Split(text, " ")
	result := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			result = append(result, "")
			continue
		}
		result = append(result, wordStyle.Render(w))
	}
	return strings.Join(result, b.space)
}

// Space returns one styled space.
func (b BgStyle) Space() string { return b.space }

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(b.space, n)
}

// Join joins non-empty parts with sep.
func (b BgStyle) Join(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
