// Package distribution holds the random variables used to initialize
// particle attributes when a spawner emits.
//
// Values are immutable. Changing a bound means constructing a new value;
// nothing here keeps random generator state between constructions.
package distribution

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	ErrInvalidBounds = errors.New("distribution: min must not exceed max")
	ErrInvalidStdDev = errors.New("distribution: stddev must be a finite value >= 0")
	ErrUnknownKind   = errors.New("distribution: unknown kind")
)

type Kind uint8

const (
	KindClamped Kind = iota
	KindNormal
)

func (k Kind) String() string {
	switch k {
	case KindClamped:
		return "clamped"
	case KindNormal:
		return "normal"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "clamped":
		return KindClamped, nil
	case "normal":
		return KindNormal, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownKind, s)
}

// Distribution is a random variable producing float32 draws.
type Distribution interface {
	// Sample draws one value. A nil r uses the package-level source of math/rand/v2.
	Sample(r *rand.Rand) float32
	Kind() Kind
	// Validate reports whether the value could have come from its constructor.
	// The zero value of every implementation is valid.
	Validate() error
}

// Equal compares two distributions by kind and parameters.
func Equal(a, b Distribution) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

func normFloat(r *rand.Rand) float64 {
	if r == nil {
		return rand.NormFloat64()
	}
	return r.NormFloat64()
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ClampedNormal is a normal distribution truncated to [min, max].
// Mean is the midpoint, stddev a sixth of the width, so ±3σ spans the interval.
type ClampedNormal struct {
	min float32
	max float32
}

func NewClampedNormal(min, max float32) (ClampedNormal, error) {
	if !finite(min) || !finite(max) || min > max {
		return ClampedNormal{}, fmt.Errorf("%w (min=%g, max=%g)", ErrInvalidBounds, min, max)
	}
	return ClampedNormal{min: min, max: max}, nil
}

// MustClampedNormal is NewClampedNormal for compiled-in constants.
func MustClampedNormal(min, max float32) ClampedNormal {
	d, err := NewClampedNormal(min, max)
	if err != nil {
		panic(err)
	}
	return d
}

func (d ClampedNormal) Min() float32 { return d.min }
func (d ClampedNormal) Max() float32 { return d.max }

func (d ClampedNormal) Mean() float32 { return float32(d.mean()) }

func (d ClampedNormal) StdDev() float32 { return float32(d.stddev()) }

// mean and stddev work in float64: the width of two finite float32 bounds
// can exceed MaxFloat32.
func (d ClampedNormal) mean() float64 { return float64(d.min)/2 + float64(d.max)/2 }

func (d ClampedNormal) stddev() float64 { return (float64(d.max) - float64(d.min)) / 6 }

func (d ClampedNormal) Kind() Kind { return KindClamped }

func (d ClampedNormal) Validate() error {
	_, err := NewClampedNormal(d.min, d.max)
	return err
}

func (d ClampedNormal) WithBounds(min, max float32) (ClampedNormal, error) {
	return NewClampedNormal(min, max)
}

func (d ClampedNormal) WithMin(min float32) (ClampedNormal, error) {
	return NewClampedNormal(min, d.max)
}

func (d ClampedNormal) WithMax(max float32) (ClampedNormal, error) {
	return NewClampedNormal(d.min, max)
}

func (d ClampedNormal) Sample(r *rand.Rand) float32 {
	if d.min == d.max {
		return d.min
	}
	v := d.mean() + normFloat(r)*d.stddev()
	switch {
	case math.IsNaN(v):
		return d.Mean()
	case v < float64(d.min):
		return d.min
	case v > float64(d.max):
		return d.max
	}
	return float32(v)
}

func (d ClampedNormal) String() string {
	return fmt.Sprintf("clamped[%g, %g]", d.min, d.max)
}

// FreeNormal is an unclamped normal distribution. Both tails are reachable.
type FreeNormal struct {
	mean   float32
	stddev float32
}

func NewFreeNormal(mean, stddev float32) (FreeNormal, error) {
	if !finite(mean) || !finite(stddev) || stddev < 0 {
		return FreeNormal{}, fmt.Errorf("%w (mean=%g, stddev=%g)", ErrInvalidStdDev, mean, stddev)
	}
	return FreeNormal{mean: mean, stddev: stddev}, nil
}

func MustFreeNormal(mean, stddev float32) FreeNormal {
	d, err := NewFreeNormal(mean, stddev)
	if err != nil {
		panic(err)
	}
	return d
}

func (d FreeNormal) Mean() float32   { return d.mean }
func (d FreeNormal) StdDev() float32 { return d.stddev }

func (d FreeNormal) Kind() Kind { return KindNormal }

func (d FreeNormal) Validate() error {
	_, err := NewFreeNormal(d.mean, d.stddev)
	return err
}

func (d FreeNormal) WithMean(mean float32) (FreeNormal, error) {
	return NewFreeNormal(mean, d.stddev)
}

func (d FreeNormal) WithStdDev(stddev float32) (FreeNormal, error) {
	return NewFreeNormal(d.mean, stddev)
}

func (d FreeNormal) Sample(r *rand.Rand) float32 {
	return float32(float64(d.mean) + normFloat(r)*float64(d.stddev))
}

func (d FreeNormal) String() string {
	return fmt.Sprintf("normal(%g, %g)", d.mean, d.stddev)
}
