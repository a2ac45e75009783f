package output

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	producerSaturation = 0.74
	producerLightness  = 0.68
)

// ProducerColor returns a stable color for a producer name. The same name
// always maps to the same hue.
func ProducerColor(producer string) lipgloss.Color {
	normalized := strings.ToLower(strings.TrimSpace(producer))
	if normalized == "" {
		return lipgloss.Color("245")
	}
	hue := ProducerHue(normalized)
	return lipgloss.Color(hslToHex(float64(hue), producerSaturation, producerLightness))
}

// ProducerHue hashes name into a hue in [0, 360).
func ProducerHue(name string) int {
	var h int32
	for _, r := range utf16Units(name) {
		h = h*31 + int32(r)
	}
	hue := int(h) % 360
	if hue < 0 {
		hue = -hue
	}
	return hue
}

// utf16Units keeps hues identical to those computed over UTF-16 code units.
func utf16Units(s string) []uint16 {
	out := make([]uint16, 0, len(s))
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
			continue
		}
		out = append(out, uint16(r))
	}
	return out
}

func hslToHex(h, s, l float64) string {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return fmt.Sprintf("#%02x%02x%02x",
		int(math.Round((r+m)*255)),
		int(math.Round((g+m)*255)),
		int(math.Round((b+m)*255)))
}
