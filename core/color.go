package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrColorRange = errors.New("color channel outside [0, 1]")

// Color is a linear RGBA value, every channel in [0, 1].
type Color struct {
	R, G, B, A float32
}

func (c Color) Array() [4]float32 { return [4]float32{c.R, c.G, c.B, c.A} }

func ColorFromArray(v [4]float32) Color { return Color{R: v[0], G: v[1], B: v[2], A: v[3]} }

func (c Color) Validate() error {
	for i, v := range c.Array() {
		f := float64(v)
		if math.IsNaN(f) || v < 0 || v > 1 {
			return fmt.Errorf("%w: channel %c = %g", ErrColorRange, "RGBA"[i], v)
		}
	}
	return nil
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
}

// Hex formats the color as #rrggbbaa.
func (c Color) Hex() string {
	return fmt.Sprintf("%s%02x", c.colorful().Clamped().Hex(), toByte(c.A))
}

// ParseHex accepts #rgb, #rrggbb and #rrggbbaa. Alpha defaults to 1.
func ParseHex(s string) (Color, error) {
	alpha := float32(1)
	if len(s) == 9 && strings.HasPrefix(s, "#") {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("parse alpha of %q: %w", s, err)
		}
		alpha = float32(a) / 255
		s = s[:7]
	}
	col, err := colorful.Hex(s)
	if err != nil {
		return Color{}, err
	}
	return Color{R: float32(col.R), G: float32(col.G), B: float32(col.B), A: alpha}, nil
}

// Lerp blends in linear RGB, the same interpolation the gradient texture sampler performs.
func (c Color) Lerp(to Color, t float32) Color {
	t = clamp01(t)
	rgb := c.colorful().BlendRgb(to.colorful(), float64(t))
	return Color{
		R: float32(rgb.R),
		G: float32(rgb.G),
		B: float32(rgb.B),
		A: c.A + (to.A-c.A)*t,
	}
}

// RGBA8 quantizes the color for 8-bit texture upload.
func (c Color) RGBA8() [4]uint8 {
	return [4]uint8{toByte(c.R), toByte(c.G), toByte(c.B), toByte(c.A)}
}

func toByte(v float32) uint8 {
	return uint8(math.Round(float64(clamp01(v)) * 255))
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Gradient is the begin/end color pair a layer is tinted with over a particle's life.
// It is comparable with ==, which is what the renderer's upload cache keys on.
type Gradient [2]Color

func NewGradient(begin, end Color) Gradient { return Gradient{begin, end} }

func (g Gradient) Begin() Color { return g[0] }
func (g Gradient) End() Color   { return g[1] }

func (g Gradient) At(t float32) Color { return g[0].Lerp(g[1], t) }

func (g Gradient) Validate() error {
	for i, c := range g {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("gradient stop %d: %w", i, err)
		}
	}
	return nil
}

// Texels returns the gradient as tightly packed RGBA8 texels, begin first.
func (g Gradient) Texels() []byte {
	b, e := g[0].RGBA8(), g[1].RGBA8()
	return []byte{b[0], b[1], b[2], b[3], e[0], e[1], e[2], e[3]}
}
