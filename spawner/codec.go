package spawner

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gekko3d/awparticles/core"
	"github.com/gekko3d/awparticles/distribution"
)

// Schema is the first line of every .awps document.
const Schema = "awps/1"

var (
	ErrMissingField = errors.New("missing field")
	ErrSchema       = errors.New("unsupported schema")
	ErrEmpty        = errors.New("empty document")
	ErrTrailingData = errors.New("data after the document")
)

// ParseError reports where decoding a .awps payload failed.
type ParseError struct {
	Field string // dotted key, empty when the document itself is malformed
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return "awps: " + e.Err.Error()
	}
	return fmt.Sprintf("awps: %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// The document keeps the gradient last. Colors are flow sequences, so cutting
// the payload anywhere either drops a required key or leaves a bracket open.
type document struct {
	Schema      *string      `yaml:"schema"`
	Position    *vec3Doc     `yaml:"position"`
	VelocityDir *vec2Doc     `yaml:"velocity"`
	Size        *distDoc     `yaml:"size,flow"`
	Rotation    *distDoc     `yaml:"rotation,flow"`
	Amount      *distDoc     `yaml:"amount,flow"`
	TTL         *distDoc     `yaml:"ttl,flow"`
	Interval    *distDoc     `yaml:"interval,flow"`
	FadeIn      *float32     `yaml:"fade_in"`
	Gradient    *gradientDoc `yaml:"gradient,flow"`
}

type vec3Doc struct {
	X *distDoc `yaml:"x,flow"`
	Y *distDoc `yaml:"y,flow"`
	Z *distDoc `yaml:"z,flow"`
}

type vec2Doc struct {
	X *distDoc `yaml:"x,flow"`
	Y *distDoc `yaml:"y,flow"`
}

type distDoc struct {
	Kind   string   `yaml:"kind"`
	Min    *float32 `yaml:"min,omitempty"`
	Max    *float32 `yaml:"max,omitempty"`
	Mean   *float32 `yaml:"mean,omitempty"`
	StdDev *float32 `yaml:"stddev,omitempty"`
}

type gradientDoc struct {
	Begin []float32 `yaml:"begin,flow"`
	End   []float32 `yaml:"end,flow"`
}

// Marshal encodes c as a .awps document. Output is deterministic.
func Marshal(c Config) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("awps: marshal: %w", err)
	}
	doc := document{
		Schema:      ptr(Schema),
		Position:    &vec3Doc{},
		VelocityDir: &vec2Doc{},
		FadeIn:      ptr(c.FadeIn),
		Gradient: &gradientDoc{
			Begin: colorDoc(c.Gradient.Begin()),
			End:   colorDoc(c.Gradient.End()),
		},
	}
	for _, f := range Fields() {
		d, err := encodeDist(c.Distribution(f))
		if err != nil {
			return nil, fmt.Errorf("awps: marshal %s: %w", f, err)
		}
		*doc.slot(f) = d
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("awps: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("awps: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse decodes a .awps document. Every key is required, unknown keys are
// rejected and the payload must hold exactly one document. On failure the zero Config is returned with a *ParseError.
func Parse(data []byte) (Config, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrEmpty
		}
		return Config{}, &ParseError{Err: err}
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = ErrTrailingData
		} else {
			err = fmt.Errorf("%w: %v", ErrTrailingData, err)
		}
		return Config{}, &ParseError{Err: err}
	}

	if doc.Schema == nil {
		return Config{}, &ParseError{Field: "schema", Err: ErrMissingField}
	}
	if *doc.Schema != Schema {
		return Config{}, &ParseError{Field: "schema", Err: fmt.Errorf("%w %q", ErrSchema, *doc.Schema)}
	}
	if doc.Position == nil {
		return Config{}, &ParseError{Field: "position", Err: ErrMissingField}
	}
	if doc.VelocityDir == nil {
		return Config{}, &ParseError{Field: "velocity", Err: ErrMissingField}
	}

	var c Config
	for _, f := range Fields() {
		d, err := decodeDist(*doc.slot(f))
		if err != nil {
			return Config{}, &ParseError{Field: f.String(), Err: err}
		}
		if err := c.SetDistribution(f, d); err != nil {
			return Config{}, &ParseError{Field: f.String(), Err: err}
		}
	}

	if doc.FadeIn == nil {
		return Config{}, &ParseError{Field: "fade_in", Err: ErrMissingField}
	}
	if err := c.SetFadeIn(*doc.FadeIn); err != nil {
		return Config{}, &ParseError{Field: "fade_in", Err: err}
	}

	if doc.Gradient == nil {
		return Config{}, &ParseError{Field: "gradient", Err: ErrMissingField}
	}
	for _, stop := range []GradientStop{Begin, End} {
		raw := doc.Gradient.Begin
		if stop == End {
			raw = doc.Gradient.End
		}
		key := "gradient." + stop.String()
		col, err := decodeColor(raw)
		if err != nil {
			return Config{}, &ParseError{Field: key, Err: err}
		}
		if err := c.SetColor(stop, col); err != nil {
			return Config{}, &ParseError{Field: key, Err: err}
		}
	}
	return c, nil
}

func (d *document) slot(f Field) **distDoc {
	switch f {
	case PositionX:
		return &d.Position.X
	case PositionY:
		return &d.Position.Y
	case PositionZ:
		return &d.Position.Z
	case VelocityX:
		return &d.VelocityDir.X
	case VelocityY:
		return &d.VelocityDir.Y
	case Size:
		return &d.Size
	case Rotation:
		return &d.Rotation
	case Amount:
		return &d.Amount
	case TTL:
		return &d.TTL
	case Interval:
		return &d.Interval
	}
	panic(fmt.Sprintf("spawner: no document slot for %v", f))
}

func encodeDist(d distribution.Distribution) (*distDoc, error) {
	switch v := d.(type) {
	case distribution.ClampedNormal:
		return &distDoc{Kind: v.Kind().String(), Min: ptr(v.Min()), Max: ptr(v.Max())}, nil
	case distribution.FreeNormal:
		return &distDoc{Kind: v.Kind().String(), Mean: ptr(v.Mean()), StdDev: ptr(v.StdDev())}, nil
	}
	return nil, fmt.Errorf("unsupported distribution %T", d)
}

func decodeDist(doc *distDoc) (distribution.Distribution, error) {
	if doc == nil {
		return nil, ErrMissingField
	}
	kind, err := distribution.ParseKind(doc.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case distribution.KindClamped:
		if doc.Mean != nil || doc.StdDev != nil {
			return nil, fmt.Errorf("%s takes min and max only", kind)
		}
		if doc.Min == nil || doc.Max == nil {
			return nil, fmt.Errorf("%s: min and max: %w", kind, ErrMissingField)
		}
		return distribution.NewClampedNormal(*doc.Min, *doc.Max)
	default:
		if doc.Min != nil || doc.Max != nil {
			return nil, fmt.Errorf("%s takes mean and stddev only", kind)
		}
		if doc.Mean == nil || doc.StdDev == nil {
			return nil, fmt.Errorf("%s: mean and stddev: %w", kind, ErrMissingField)
		}
		return distribution.NewFreeNormal(*doc.Mean, *doc.StdDev)
	}
}

func colorDoc(c core.Color) []float32 {
	a := c.Array()
	return a[:]
}

func decodeColor(v []float32) (core.Color, error) {
	if v == nil {
		return core.Color{}, ErrMissingField
	}
	if len(v) != 4 {
		return core.Color{}, fmt.Errorf("want 4 channels, got %d", len(v))
	}
	return core.ColorFromArray([4]float32(v)), nil
}

func ptr[T any](v T) *T { return &v }
