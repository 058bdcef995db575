// Package spawner models the tunable recipe of a particle source: the
// distributions new particles are drawn from and the gradient they are
// tinted with, plus its .awps file encoding.
package spawner

import (
	"errors"
	"fmt"
	"math"

	"github.com/gekko3d/awparticles/core"
	"github.com/gekko3d/awparticles/distribution"
)

const (
	MaxFadeIn = 0.5
)

var (
	ErrFadeInRange  = errors.New("spawner: fade-in must be within [0, 0.5]")
	ErrUnknownField = errors.New("spawner: unknown field")
	ErrUnknownStop  = errors.New("spawner: unknown gradient stop")
)

// Config is one spawner recipe. It has no derived state: replacing any field
// is a complete update.
type Config struct {
	Position    [3]distribution.Distribution // offset from the spawner origin
	VelocityDir [2]distribution.Distribution
	Size        distribution.Distribution
	Rotation    distribution.Distribution // radians
	Amount      distribution.Distribution // particles per spawn
	TTL         distribution.Distribution // seconds
	Interval    distribution.Distribution // seconds between spawns
	FadeIn      float32                   // fraction of life spent fading in
	Gradient    core.Gradient
}

// Default is the configuration a new editing session starts from.
func Default() Config {
	return Config{
		Position: [3]distribution.Distribution{
			distribution.MustClampedNormal(-0.1, 0.1),
			distribution.MustClampedNormal(-0.1, 0.1),
			distribution.MustClampedNormal(0, 0),
		},
		VelocityDir: [2]distribution.Distribution{
			distribution.MustClampedNormal(-0.5, 0.5),
			distribution.MustClampedNormal(0.5, 1.5),
		},
		Size:     distribution.MustClampedNormal(0.1, 0.3),
		Rotation: distribution.MustClampedNormal(0, 2*math.Pi),
		Amount:   distribution.MustClampedNormal(5, 10),
		TTL:      distribution.MustClampedNormal(1, 2),
		Interval: distribution.MustClampedNormal(0.05, 0.1),
		FadeIn:   0.1,
		Gradient: core.NewGradient(
			core.Color{R: 1, G: 0.6, B: 0.1, A: 1},
			core.Color{R: 0.8, G: 0.1, B: 0, A: 0},
		),
	}
}

// Validate checks every distribution, the fade-in range and both colors.
func (c Config) Validate() error {
	for _, f := range Fields() {
		d := c.Distribution(f)
		if d == nil {
			return fmt.Errorf("%s: missing distribution", f)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	if err := validateFadeIn(c.FadeIn); err != nil {
		return err
	}
	return c.Gradient.Validate()
}

func validateFadeIn(v float32) error {
	if math.IsNaN(float64(v)) || v < 0 || v > MaxFadeIn {
		return fmt.Errorf("%w: %g", ErrFadeInRange, v)
	}
	return nil
}

func (c Config) Distribution(f Field) distribution.Distribution {
	p := c.slot(f)
	if p == nil {
		return nil
	}
	return *p
}

// SetDistribution replaces a single slot. An invalid value leaves c unchanged.
func (c *Config) SetDistribution(f Field, d distribution.Distribution) error {
	p := c.slot(f)
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	if d == nil {
		return fmt.Errorf("%s: missing distribution", f)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%s: %w", f, err)
	}
	*p = d
	return nil
}

func (c *Config) SetColor(stop GradientStop, col core.Color) error {
	if stop != Begin && stop != End {
		return fmt.Errorf("%w: %d", ErrUnknownStop, int(stop))
	}
	if err := col.Validate(); err != nil {
		return fmt.Errorf("%s color: %w", stop, err)
	}
	c.Gradient[stop] = col
	return nil
}

func (c *Config) SetFadeIn(v float32) error {
	if err := validateFadeIn(v); err != nil {
		return err
	}
	c.FadeIn = v
	return nil
}

// MinLifeSpan keeps LifeSpan positive for a TTL pinned at zero.
const MinLifeSpan = 1e-3

// LifeSpan is the longest a particle is expected to live: the upper bound of
// a clamped TTL, or three standard deviations above a free one.
func (c Config) LifeSpan() float32 {
	var span float64
	switch ttl := c.TTL.(type) {
	case distribution.ClampedNormal:
		span = float64(ttl.Max())
	case distribution.FreeNormal:
		span = float64(ttl.Mean()) + 3*float64(ttl.StdDev())
	}
	if math.IsNaN(span) || span < MinLifeSpan {
		return MinLifeSpan
	}
	if span > math.MaxFloat32 {
		return math.MaxFloat32
	}
	return float32(span)
}

// Equal compares two configurations field by field.
func (c Config) Equal(o Config) bool {
	for _, f := range Fields() {
		if !distribution.Equal(c.Distribution(f), o.Distribution(f)) {
			return false
		}
	}
	return c.FadeIn == o.FadeIn && c.Gradient == o.Gradient
}

func (c *Config) slot(f Field) *distribution.Distribution {
	switch f {
	case PositionX:
		return &c.Position[0]
	case PositionY:
		return &c.Position[1]
	case PositionZ:
		return &c.Position[2]
	case VelocityX:
		return &c.VelocityDir[0]
	case VelocityY:
		return &c.VelocityDir[1]
	case Size:
		return &c.Size
	case Rotation:
		return &c.Rotation
	case Amount:
		return &c.Amount
	case TTL:
		return &c.TTL
	case Interval:
		return &c.Interval
	}
	return nil
}
