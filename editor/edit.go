package editor

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/awparticles/distribution"
	"github.com/gekko3d/awparticles/spawner"
)

// EditFunc proposes a replacement for one distribution. It reports false when
// it leaves the value alone.
type EditFunc func(distribution.Distribution) (distribution.Distribution, bool)

// Apply runs fn on one slot of the config. The slot is replaced only when fn
// reports a change and the proposed value is valid.
func (s *Session) Apply(f spawner.Field, fn EditFunc) (bool, error) {
	next, changed := fn(s.Config.Distribution(f))
	if !changed {
		return false, nil
	}
	if err := s.Config.SetDistribution(f, next); err != nil {
		return false, err
	}
	return true, nil
}

// EditMin moves the lower bound of a clamped distribution. Values above the
// current max are ignored.
func EditMin(min float32) EditFunc {
	return func(d distribution.Distribution) (distribution.Distribution, bool) {
		c, ok := d.(distribution.ClampedNormal)
		if !ok || c.Min() == min {
			return d, false
		}
		next, err := c.WithMin(min)
		if err != nil {
			return d, false
		}
		return next, true
	}
}

// EditMax moves the upper bound of a clamped distribution. Values below the
// current min are ignored.
func EditMax(max float32) EditFunc {
	return func(d distribution.Distribution) (distribution.Distribution, bool) {
		c, ok := d.(distribution.ClampedNormal)
		if !ok || c.Max() == max {
			return d, false
		}
		next, err := c.WithMax(max)
		if err != nil {
			return d, false
		}
		return next, true
	}
}

// EditBounds sets both bounds at once, turning any distribution into a
// clamped one. Crossed bounds are ignored.
func EditBounds(min, max float32) EditFunc {
	return func(d distribution.Distribution) (distribution.Distribution, bool) {
		next, err := distribution.NewClampedNormal(min, max)
		if err != nil || distribution.Equal(d, next) {
			return d, false
		}
		return next, true
	}
}

// EditNormal replaces the slot with an unclamped normal distribution.
func EditNormal(mean, stddev float32) EditFunc {
	return func(d distribution.Distribution) (distribution.Distribution, bool) {
		next, err := distribution.NewFreeNormal(mean, stddev)
		if err != nil || distribution.Equal(d, next) {
			return d, false
		}
		return next, true
	}
}

// InDegrees lets fn edit a distribution stored in radians as if it were in
// degrees. The rotation slot is edited this way.
func InDegrees(fn EditFunc) EditFunc {
	return func(d distribution.Distribution) (distribution.Distribution, bool) {
		next, changed := fn(Degrees(d))
		if !changed {
			return d, false
		}
		return Radians(next), true
	}
}

// Degrees converts a distribution over radians into the same distribution over degrees.
func Degrees(d distribution.Distribution) distribution.Distribution {
	return scale(d, mgl32.RadToDeg)
}

// Radians is the inverse of Degrees.
func Radians(d distribution.Distribution) distribution.Distribution {
	return scale(d, mgl32.DegToRad)
}

// scale maps every parameter through a positive linear conversion, which
// keeps bounds ordered and stddev non-negative.
func scale(d distribution.Distribution, conv func(float32) float32) distribution.Distribution {
	switch v := d.(type) {
	case distribution.ClampedNormal:
		if out, err := distribution.NewClampedNormal(conv(v.Min()), conv(v.Max())); err == nil {
			return out
		}
	case distribution.FreeNormal:
		if out, err := distribution.NewFreeNormal(conv(v.Mean()), conv(v.StdDev())); err == nil {
			return out
		}
	}
	return d
}
