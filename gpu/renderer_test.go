package gpu

import (
	"errors"
	"image"
	"math"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/awparticles/assets"
	"github.com/gekko3d/awparticles/core"
)

type draw struct {
	vertices  uint32
	instances uint32
}

// recordingBackend logs every call so tests can assert on the call sequence.
type recordingBackend struct {
	calls     []string
	src       ShaderSource
	quad      []mgl32.Vec2
	gradients []core.Gradient
	instances [][]core.ParticleInstance
	draws     []draw
	uniforms  []Uniforms
	released  int

	failOn map[string]error
}

func (b *recordingBackend) fail(op string) error {
	b.calls = append(b.calls, op)
	return b.failOn[op]
}

func (b *recordingBackend) Init(src ShaderSource, quad []mgl32.Vec2) error {
	b.src = src
	b.quad = quad
	return b.fail("init")
}

func (b *recordingBackend) BeginFrame() error { return b.fail("begin") }

func (b *recordingBackend) WriteUniforms(u Uniforms) error {
	b.uniforms = append(b.uniforms, u)
	return b.fail("uniforms")
}

func (b *recordingBackend) UploadGradient(g core.Gradient) error {
	if err := b.fail("gradient"); err != nil {
		return err
	}
	b.gradients = append(b.gradients, g)
	return nil
}

func (b *recordingBackend) WriteInstances(in []core.ParticleInstance) error {
	b.instances = append(b.instances, append([]core.ParticleInstance(nil), in...))
	return b.fail("instances")
}

func (b *recordingBackend) DrawInstanced(vertexCount, instanceCount uint32) error {
	if err := b.fail("draw"); err != nil {
		return err
	}
	b.draws = append(b.draws, draw{vertexCount, instanceCount})
	return nil
}

func (b *recordingBackend) EndFrame() error { return b.fail("end") }

func (b *recordingBackend) Release() {
	b.calls = append(b.calls, "release")
	b.released++
}

var (
	fire  = core.NewGradient(core.Color{R: 1, G: 0.5, A: 1}, core.Color{R: 1})
	smoke = core.NewGradient(core.Color{R: 0.5, G: 0.5, B: 0.5, A: 0.5}, core.Color{})
)

func particles(n int) []core.ParticleInstance {
	out := make([]core.ParticleInstance, n)
	for i := range out {
		out[i] = core.ParticleInstance{TTL: 1, Position: mgl32.Vec3{float32(i), 0, 0}, Size: 0.2}
	}
	return out
}

func newTestRenderer(t *testing.T, b *recordingBackend) *Renderer {
	t.Helper()
	r, err := NewRenderer(b, assets.FS(), image.Pt(800, 600))
	require.NoError(t, err)
	require.Equal(t, StateReady, r.State())
	b.calls = nil
	return r
}

func TestNewRenderer_LoadsShadersAndQuad(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)

	assert.Contains(t, b.src.Vertex, "vs_main")
	assert.Contains(t, b.src.Fragment, "fs_main")
	assert.Equal(t, QuadVertices, b.quad)
	assert.Len(t, b.quad, 4)
	assert.Equal(t, image.Pt(800, 600), r.Viewport())
	assert.Zero(t, b.released)
}

func TestNewRenderer_FailureReleasesBackend(t *testing.T) {
	b := &recordingBackend{failOn: map[string]error{"init": errors.New("no adapter")}}
	r, err := NewRenderer(b, assets.FS(), image.Pt(1, 1))
	assert.Nil(t, r)
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "init", opErr.Op)
	assert.Equal(t, 1, b.released)

	b = &recordingBackend{}
	missing := fstest.MapFS{assets.ParticleVertexPath: {Data: []byte("fn vs_main() {}")}}
	r, err = NewRenderer(b, missing, image.Pt(1, 1))
	assert.Nil(t, r)
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "load shaders", opErr.Op)
	assert.Equal(t, []string{"release"}, b.calls, "init must not run without both shaders")

	_, err = NewRenderer(nil, assets.FS(), image.Pt(1, 1))
	assert.Error(t, err)
}

func TestRender_GradientUploadedOnce(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)
	layers := []core.Layer{{Gradient: fire, Particles: particles(3)}}

	require.NoError(t, r.Render(mgl32.Ident4(), time.Second, layers))
	require.NoError(t, r.Render(mgl32.Ident4(), 2*time.Second, layers))

	assert.Equal(t, []core.Gradient{fire}, b.gradients)
	assert.Equal(t, uint64(1), r.Stats().GradientUploads)
	require.Len(t, b.uniforms, 2)
	assert.Equal(t, float32(1), b.uniforms[0].SimulationTime)
	assert.Equal(t, float32(2), b.uniforms[1].SimulationTime)

	// Same gradient split across two layers and unchanged frames: still one upload.
	layers = append(layers, core.Layer{Gradient: fire, Particles: particles(2)})
	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))
	assert.Len(t, b.gradients, 1)

	layers = append(layers, core.Layer{Gradient: smoke, Particles: particles(1)})
	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))
	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))
	assert.Equal(t, []core.Gradient{fire, smoke, fire, smoke}, b.gradients)
}

func TestRender_EmptyLayersDrawNothing(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)

	require.NoError(t, r.Render(mgl32.Ident4(), 0, nil))
	require.NoError(t, r.Render(mgl32.Ident4(), 0, []core.Layer{{Gradient: fire}, {Gradient: smoke, Particles: []core.ParticleInstance{}}}))

	assert.Empty(t, b.draws)
	assert.Empty(t, b.gradients)
	assert.Empty(t, b.instances)
	assert.Equal(t, []string{"begin", "uniforms", "end", "begin", "uniforms", "end"}, b.calls)
	assert.Equal(t, uint64(2), r.Stats().Frames)
}

func TestRender_OneDrawPerNonEmptyLayer(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)
	layers := []core.Layer{
		{Gradient: fire, Particles: particles(5)},
		{Gradient: smoke},
		{Gradient: smoke, Particles: particles(2)},
		{Gradient: fire, Particles: particles(7)},
	}

	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))

	assert.Equal(t, []draw{{4, 5}, {4, 2}, {4, 7}}, b.draws)
	require.Len(t, b.instances, 3)
	assert.Equal(t, layers[2].Particles, b.instances[1])
	assert.Equal(t, []string{
		"begin", "uniforms",
		"gradient", "instances", "draw",
		"gradient", "instances", "draw",
		"gradient", "instances", "draw",
		"end",
	}, b.calls)

	st := r.Stats()
	assert.Equal(t, uint32(3), st.LastDrawCalls)
	assert.Equal(t, uint32(14), st.LastInstances)
	assert.Equal(t, uint64(3), st.InstanceUploads)
}

func TestRender_ErrorsNameTheOperation(t *testing.T) {
	for op, want := range map[string]string{
		"begin":     "begin frame",
		"uniforms":  "write uniforms",
		"gradient":  "upload gradient (layer 1)",
		"instances": "write instances (layer 1)",
		"draw":      "draw (layer 1)",
		"end":       "end frame",
	} {
		t.Run(op, func(t *testing.T) {
			cause := errors.New("device lost")
			b := &recordingBackend{}
			r := newTestRenderer(t, b)
			b.failOn = map[string]error{op: cause}

			err := r.Render(mgl32.Ident4(), 0, []core.Layer{{Gradient: fire}, {Gradient: fire, Particles: particles(1)}})
			var opErr *OpError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, want, opErr.Op)
			assert.ErrorIs(t, err, cause)
			assert.True(t, strings.HasPrefix(err.Error(), "gpu: "+want))
			assert.Equal(t, "end", b.calls[len(b.calls)-1], "vertex state is reset after a failure")
		})
	}
}

func TestRender_FailedGradientUploadIsRetried(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)
	layers := []core.Layer{{Gradient: fire, Particles: particles(1)}}

	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))
	b.failOn = map[string]error{"gradient": errors.New("oom")}
	require.Error(t, r.Render(mgl32.Ident4(), 0, []core.Layer{{Gradient: smoke, Particles: particles(1)}}))

	b.failOn = nil
	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))
	assert.Equal(t, []core.Gradient{fire, fire}, b.gradients)
}

func TestRenderer_Destroy(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)

	require.NoError(t, r.Destroy())
	assert.Equal(t, StateDestroyed, r.State())
	assert.Equal(t, 1, b.released)

	assert.ErrorIs(t, r.Destroy(), ErrDestroyed)
	assert.ErrorIs(t, r.Render(mgl32.Ident4(), 0, nil), ErrDestroyed)
	assert.ErrorIs(t, r.Resize(image.Pt(10, 10)), ErrDestroyed)
	assert.Equal(t, 1, b.released, "resources are released exactly once")

	var zero Renderer
	assert.ErrorIs(t, zero.Render(mgl32.Ident4(), 0, nil), ErrNotReady)
	assert.Equal(t, "uninitialized", zero.State().String())
}

func TestRenderer_Profiler(t *testing.T) {
	b := &recordingBackend{}
	p := NewProfiler()
	r, err := NewRenderer(b, assets.FS(), image.Pt(4, 4), WithProfiler(p), WithLogger(nil))
	require.NoError(t, err)

	require.NoError(t, r.Render(mgl32.Ident4(), 0, []core.Layer{{Gradient: fire, Particles: particles(9)}, {}}))
	assert.Equal(t, 9, p.Counts["particles"])
	assert.Equal(t, 1, p.Counts["draw calls"])
	assert.Equal(t, 2, p.Counts["layers"])
	assert.Equal(t, []string{"particles"}, p.Order)
	assert.Contains(t, p.String(), "draw calls")
}

func TestRender_LifetimeReachesUniforms(t *testing.T) {
	b := &recordingBackend{}
	r := newTestRenderer(t, b)
	layers := []core.Layer{{Gradient: fire, Particles: particles(1)}}

	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))
	require.NoError(t, r.SetLifetime(4, 0.25))
	require.NoError(t, r.Render(mgl32.Ident4(), 0, layers))

	require.Len(t, b.uniforms, 2)
	assert.Equal(t, float32(DefaultLifeSpan), b.uniforms[0].LifeSpan)
	assert.Equal(t, float32(0), b.uniforms[0].FadeIn)
	assert.Equal(t, float32(4), b.uniforms[1].LifeSpan)
	assert.Equal(t, float32(0.25), b.uniforms[1].FadeIn)
}

func TestSetLifetime_Rejects(t *testing.T) {
	r := newTestRenderer(t, &recordingBackend{})
	require.NoError(t, r.SetLifetime(3, 0.1))

	for _, tt := range []struct {
		name             string
		lifeSpan, fadeIn float32
	}{
		{"zero span", 0, 0.1},
		{"negative span", -1, 0.1},
		{"infinite span", float32(math.Inf(1)), 0.1},
		{"nan span", float32(math.NaN()), 0.1},
		{"negative fade", 1, -0.1},
		{"fade too long", 1, 0.6},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, r.SetLifetime(tt.lifeSpan, tt.fadeIn), ErrInvalidLifetime)
			span, fade := r.Lifetime()
			assert.Equal(t, float32(3), span, "rejected values leave the lifetime alone")
			assert.Equal(t, float32(0.1), fade)
		})
	}
}
