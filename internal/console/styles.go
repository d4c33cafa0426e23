package console

import (
	"hash/fnv"

	"github.com/charmbracelet/lipgloss"
)

var authorColors = []lipgloss.Color{
	lipgloss.Color("#01cdfe"),
	lipgloss.Color("#05ffa1"),
	lipgloss.Color("#ff71ce"),
	lipgloss.Color("#fffb96"),
	lipgloss.Color("#b967ff"),
}

type styles struct {
	renderer *lipgloss.Renderer
	info     lipgloss.Style
	success  lipgloss.Style
	warn     lipgloss.Style
	err      lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		renderer: r,
		info:     r.NewStyle().Foreground(lipgloss.Color("#9ca3d8")),
		success:  r.NewStyle().Foreground(lipgloss.Color("#05ffa1")).Bold(true),
		warn:     r.NewStyle().Foreground(lipgloss.Color("#fffb96")).Bold(true),
		err:      r.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true),
	}
}

// author picks a stable color per agent name.
func (s styles) author(name string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return s.renderer.NewStyle().Bold(true).Foreground(authorColors[h.Sum32()%uint32(len(authorColors))])
}
