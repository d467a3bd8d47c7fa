package console

import (
	"strings"
	"time"

	"whereis/internal/application/service"
)

// ANSI color codes
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
)

func Colorize(s, color string) string {
	return color + s + ansiReset
}

// Renderer turns a resolution into terminal lines.
type Renderer struct {
	color bool
}

func NewRenderer(color bool) *Renderer {
	return &Renderer{color: color}
}

// RenderLines prefixes the reply with a source tag: green for a fresh or
// cached fix, yellow for a stale one, red when nothing is known.
func (r *Renderer) RenderLines(res service.Resolution, links *service.MapLinks, now time.Time) []string {
	lines := strings.Split(service.FormatReply(res, links, now), "\n")

	tagCol := ansiGreen
	switch res.Source {
	case service.SourceStale:
		tagCol = ansiYellow
	case service.SourceNone:
		tagCol = ansiRed
	}
	tag := "[" + res.Source.String() + "]"

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i == 0 {
			out = append(out, r.paint(tag, tagCol)+" "+line)
			continue
		}
		out = append(out, r.paint(line, ansiDim))
	}
	return out
}

func (r *Renderer) paint(s, color string) string {
	if !r.color {
		return s
	}
	return Colorize(s, color)
}
