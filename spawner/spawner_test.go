package spawner

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/awparticles/core"
	"github.com/gekko3d/awparticles/distribution"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	interval, ok := c.Interval.(distribution.ClampedNormal)
	require.True(t, ok, "interval defaults to a clamped distribution")
	assert.Greater(t, interval.Min(), float32(0), "a zero interval would spawn every frame")

	for _, f := range Fields() {
		d, ok := c.Distribution(f).(distribution.ClampedNormal)
		require.True(t, ok, "%s default should be clamped", f)
		assert.LessOrEqual(t, d.Min(), d.Max(), "%s bounds", f)
	}
	assert.LessOrEqual(t, c.FadeIn, float32(MaxFadeIn))
}

func TestFieldNames(t *testing.T) {
	for _, f := range Fields() {
		got, err := ParseField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseField("velocity.z")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Len(t, Fields(), 10)
}

func TestSetDistribution(t *testing.T) {
	c := Default()
	size := distribution.MustClampedNormal(1, 2)
	require.NoError(t, c.SetDistribution(Size, size))
	assert.Equal(t, distribution.Distribution(size), c.Size)

	before := c
	err := c.SetDistribution(TTL, distribution.ClampedNormal{})
	require.NoError(t, err, "zero value is a valid degenerate distribution")

	c = before
	assert.Error(t, c.SetDistribution(TTL, nil))
	assert.ErrorIs(t, c.SetDistribution(Field(99), size), ErrUnknownField)
	assert.True(t, c.Equal(before), "failed updates leave the config untouched")

	free := distribution.MustFreeNormal(0, 0.5)
	require.NoError(t, c.SetDistribution(VelocityX, free))
	assert.Equal(t, distribution.Distribution(free), c.VelocityDir[0])
}

func TestSetColorAndFadeIn(t *testing.T) {
	c := Default()
	red := core.Color{R: 1, A: 1}
	require.NoError(t, c.SetColor(End, red))
	assert.Equal(t, red, c.Gradient.End())

	assert.ErrorIs(t, c.SetColor(Begin, core.Color{R: 2}), core.ErrColorRange)
	assert.ErrorIs(t, c.SetColor(GradientStop(5), red), ErrUnknownStop)
	assert.Equal(t, Default().Gradient.Begin(), c.Gradient.Begin())

	require.NoError(t, c.SetFadeIn(0.5))
	assert.ErrorIs(t, c.SetFadeIn(0.51), ErrFadeInRange)
	assert.ErrorIs(t, c.SetFadeIn(-0.1), ErrFadeInRange)
	assert.Equal(t, float32(0.5), c.FadeIn)
}

func mixedConfig(t *testing.T) Config {
	t.Helper()
	c := Default()
	require.NoError(t, c.SetDistribution(VelocityY, distribution.MustFreeNormal(1.25, 0.3)))
	require.NoError(t, c.SetDistribution(PositionZ, distribution.MustClampedNormal(-3, -3)))
	require.NoError(t, c.SetDistribution(Amount, distribution.MustClampedNormal(100, 1e6)))
	require.NoError(t, c.SetColor(Begin, core.Color{R: 0.1, G: 0.2, B: 0.3, A: 0.4}))
	require.NoError(t, c.SetFadeIn(0.333))
	return c
}

func TestMarshalParseRoundTrip(t *testing.T) {
	for name, c := range map[string]Config{
		"default": Default(),
		"mixed":   mixedConfig(t),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Marshal(c)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(data), "schema: "+Schema+"\n"))

			got, err := Parse(data)
			require.NoError(t, err)
			assert.True(t, c.Equal(got), "round trip changed config:\n%s", data)

			again, err := Marshal(got)
			require.NoError(t, err)
			assert.Equal(t, string(data), string(again), "output is deterministic")
		})
	}
}

// randomConfig mixes both distribution kinds across every field.
func randomConfig(t *testing.T, r *rand.Rand) Config {
	t.Helper()
	var c Config
	for _, f := range Fields() {
		var d distribution.Distribution
		if r.IntN(2) == 0 {
			min := r.Float32()*200 - 100
			d = distribution.MustClampedNormal(min, min+r.Float32()*50)
		} else {
			d = distribution.MustFreeNormal(r.Float32()*200-100, r.Float32()*10)
		}
		require.NoError(t, c.SetDistribution(f, d))
	}
	for _, stop := range []GradientStop{Begin, End} {
		col := core.Color{R: r.Float32(), G: r.Float32(), B: r.Float32(), A: r.Float32()}
		require.NoError(t, c.SetColor(stop, col))
	}
	require.NoError(t, c.SetFadeIn(r.Float32()*MaxFadeIn))
	return c
}

func TestMarshalParseRoundTrip_Random(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 1))
	for i := 0; i < 200; i++ {
		c := randomConfig(t, r)
		data, err := Marshal(c)
		require.NoError(t, err)

		got, err := Parse(data)
		require.NoError(t, err, "config %d:\n%s", i, data)
		require.True(t, c.Equal(got), "config %d changed in round trip:\n%s", i, data)
	}
}

func TestMarshalRejectsInvalid(t *testing.T) {
	c := Default()
	c.FadeIn = 0.9
	_, err := Marshal(c)
	assert.ErrorIs(t, err, ErrFadeInRange)

	c = Default()
	c.Size = nil
	_, err = Marshal(c)
	assert.Error(t, err)
}

func TestParseTruncated(t *testing.T) {
	data, err := Marshal(mixedConfig(t))
	require.NoError(t, err)
	full := strings.TrimSpace(string(data))

	for i := 0; i < len(data); i++ {
		prefix := data[:i]
		if strings.TrimSpace(string(prefix)) == full {
			continue
		}
		c, err := Parse(prefix)
		var pe *ParseError
		if !assert.ErrorAs(t, err, &pe, "prefix of %d bytes parsed:\n%s", i, prefix) {
			continue
		}
		assert.True(t, c.Equal(Config{}), "prefix of %d bytes returned a partial config", i)
	}
}

func TestParseErrors(t *testing.T) {
	valid, err := Marshal(Default())
	require.NoError(t, err)
	doc := string(valid)

	tests := []struct {
		name  string
		data  string
		field string
		is    error
	}{
		{"empty", "", "", ErrEmpty},
		{"not yaml", "{{{", "", nil},
		{"wrong schema", strings.Replace(doc, Schema, "awps/2", 1), "schema", ErrSchema},
		{"missing schema", strings.Replace(doc, "schema: "+Schema+"\n", "", 1), "schema", ErrMissingField},
		{"unknown key", doc + "speed: 3\n", "", nil},
		{"crossed bounds", strings.Replace(doc, "size: {kind: clamped, min: 0.1, max: 0.3}", "size: {kind: clamped, min: 0.3, max: 0.1}", 1), "size", distribution.ErrInvalidBounds},
		{"negative stddev", strings.Replace(doc, "size: {kind: clamped, min: 0.1, max: 0.3}", "size: {kind: normal, mean: 1, stddev: -1}", 1), "size", distribution.ErrInvalidStdDev},
		{"mixed parameters", strings.Replace(doc, "size: {kind: clamped, min: 0.1, max: 0.3}", "size: {kind: clamped, min: 0.1, max: 0.3, mean: 1}", 1), "size", nil},
		{"unknown kind", strings.Replace(doc, "size: {kind: clamped", "size: {kind: uniform", 1), "size", distribution.ErrUnknownKind},
		{"missing bound", strings.Replace(doc, "size: {kind: clamped, min: 0.1, max: 0.3}", "size: {kind: clamped, min: 0.1}", 1), "size", ErrMissingField},
		{"fade in range", strings.Replace(doc, "fade_in: 0.1", "fade_in: 0.75", 1), "fade_in", ErrFadeInRange},
		{"color range", strings.Replace(doc, "begin: [1, 0.6, 0.1, 1]", "begin: [1, 1.6, 0.1, 1]", 1), "gradient.begin", core.ErrColorRange},
		{"short color", strings.Replace(doc, "begin: [1, 0.6, 0.1, 1]", "begin: [1, 0.6, 0.1]", 1), "gradient.begin", nil},
		{"trailing document", doc + "---\nschema: awps/9\ngarbage: [\n", "", ErrTrailingData},
		{"second valid document", doc + "---\n" + doc, "", ErrTrailingData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotEqual(t, doc, tt.data, "fixture did not change the document")
			c, err := Parse([]byte(tt.data))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "want %v, got %v", tt.is, err)
			}
			assert.True(t, c.Equal(Config{}))
		})
	}
}

func TestWithExtension(t *testing.T) {
	assert.Equal(t, "fire.awps", WithExtension("fire"))
	assert.Equal(t, "fire.awps", WithExtension("fire.awps"))
	assert.Equal(t, "fire.txt", WithExtension("fire.txt"))
	assert.Equal(t, filepath.Join("dir.d", "smoke.awps"), WithExtension(filepath.Join("dir.d", "smoke")))
	assert.Equal(t, "", WithExtension(""))
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fire.awps")
	c := mixedConfig(t)

	require.NoError(t, SaveFile(path, c))
	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, c.Equal(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")

	require.NoError(t, os.WriteFile(path, []byte("schema: awps/1\n"), 0o644))
	_, err = LoadFile(path)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)

	_, err = LoadFile(filepath.Join(dir, "missing.awps"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLifeSpan(t *testing.T) {
	c := Default()
	assert.Equal(t, float32(2), c.LifeSpan(), "the upper TTL bound")

	require.NoError(t, c.SetDistribution(TTL, distribution.MustFreeNormal(1, 0.5)))
	assert.InDelta(t, 2.5, c.LifeSpan(), 1e-6)

	require.NoError(t, c.SetDistribution(TTL, distribution.MustClampedNormal(0, 0)))
	assert.Equal(t, float32(MinLifeSpan), c.LifeSpan())

	require.NoError(t, c.SetDistribution(TTL, distribution.MustFreeNormal(-5, 1)))
	assert.Equal(t, float32(MinLifeSpan), c.LifeSpan())

	assert.Equal(t, float32(MinLifeSpan), Config{}.LifeSpan())
}
