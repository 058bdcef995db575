// Package gpu draws particle layers as instanced, camera-facing quads tinted
// by a per-layer two-stop gradient.
package gpu

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/awparticles"
	"github.com/gekko3d/awparticles/assets"
	"github.com/gekko3d/awparticles/core"
)

var (
	ErrDestroyed       = errors.New("gpu: renderer destroyed")
	ErrNotReady        = errors.New("gpu: renderer not initialized")
	ErrInvalidLifetime = errors.New("gpu: invalid particle lifetime")
)

const (
	DefaultLifeSpan = 2.0
	MaxFadeIn       = 0.5
)

type State uint8

const (
	StateUninitialized State = iota
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// OpError names the renderer step that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return "gpu: " + e.Op + ": " + e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }

// Stats are cumulative since creation, except the Last* fields which describe
// the most recent Render call.
type Stats struct {
	Frames          uint64
	GradientUploads uint64
	InstanceUploads uint64
	DrawCalls       uint64
	Instances       uint64

	LastDrawCalls uint32
	LastInstances uint32
}

type Option func(*Renderer)

func WithLogger(l awparticles.Logger) Option {
	return func(r *Renderer) { r.log = awparticles.OrNop(l) }
}

func WithProfiler(p *Profiler) Option {
	return func(r *Renderer) { r.profiler = p }
}

// Renderer owns one Backend and draws particle layers with it.
// It is not safe for concurrent use.
type Renderer struct {
	backend  Backend
	state    State
	viewport image.Point
	stats    Stats

	// lastGradient is what the backend's gradient texture currently holds.
	lastGradient  core.Gradient
	gradientValid bool

	lifeSpan float32
	fadeIn   float32

	log      awparticles.Logger
	profiler *Profiler
}

// NewRenderer loads the particle shaders from assets and initializes backend.
// On any failure the backend is released and no renderer is returned.
func NewRenderer(backend Backend, assetFS fs.FS, viewport image.Point, opts ...Option) (*Renderer, error) {
	if backend == nil {
		return nil, &OpError{Op: "init", Err: errors.New("nil backend")}
	}
	r := &Renderer{
		backend:  backend,
		viewport: viewport,
		lifeSpan: DefaultLifeSpan,
		log:      awparticles.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	src, err := loadShaders(assetFS)
	if err != nil {
		backend.Release()
		return nil, &OpError{Op: "load shaders", Err: err}
	}
	if err := backend.Init(src, QuadVertices); err != nil {
		backend.Release()
		return nil, &OpError{Op: "init", Err: err}
	}

	r.state = StateReady
	r.log.Debugf("particle renderer ready, viewport %dx%d", viewport.X, viewport.Y)
	return r, nil
}

func loadShaders(assetFS fs.FS) (ShaderSource, error) {
	if assetFS == nil {
		assetFS = assets.FS()
	}
	vert, err := fs.ReadFile(assetFS, assets.ParticleVertexPath)
	if err != nil {
		return ShaderSource{}, err
	}
	frag, err := fs.ReadFile(assetFS, assets.ParticleFragmentPath)
	if err != nil {
		return ShaderSource{}, err
	}
	return ShaderSource{Vertex: string(vert), Fragment: string(frag)}, nil
}

func (r *Renderer) State() State { return r.state }

func (r *Renderer) Stats() Stats { return r.stats }

func (r *Renderer) Viewport() image.Point { return r.viewport }

func (r *Renderer) Resize(viewport image.Point) error {
	if err := r.ready(); err != nil {
		return err
	}
	r.viewport = viewport
	return nil
}

// SetLifetime sets how long particles take to run through the gradient and
// the share of that span they spend fading in. It applies from the next Render.
func (r *Renderer) SetLifetime(lifeSpan, fadeIn float32) error {
	if math.IsNaN(float64(lifeSpan)) || math.IsInf(float64(lifeSpan), 0) || lifeSpan <= 0 {
		return fmt.Errorf("%w: life span %g", ErrInvalidLifetime, lifeSpan)
	}
	if math.IsNaN(float64(fadeIn)) || fadeIn < 0 || fadeIn > MaxFadeIn {
		return fmt.Errorf("%w: fade-in %g", ErrInvalidLifetime, fadeIn)
	}
	r.lifeSpan, r.fadeIn = lifeSpan, fadeIn
	return nil
}

func (r *Renderer) Lifetime() (lifeSpan, fadeIn float32) { return r.lifeSpan, r.fadeIn }

func (r *Renderer) ready() error {
	switch r.state {
	case StateReady:
		return nil
	case StateDestroyed:
		return ErrDestroyed
	}
	return ErrNotReady
}

// Render draws layers in order with one instanced draw per non-empty layer.
// Layers are only read during the call.
func (r *Renderer) Render(viewProjection mgl32.Mat4, simulationTime time.Duration, layers []core.Layer) error {
	if err := r.ready(); err != nil {
		return err
	}
	r.profiler.BeginScope("particles")
	defer r.profiler.EndScope("particles")

	if err := r.backend.BeginFrame(); err != nil {
		return r.abort("begin frame", err)
	}
	u := Uniforms{
		ViewProjection: viewProjection,
		SimulationTime: float32(simulationTime.Seconds()),
		LifeSpan:       r.lifeSpan,
		FadeIn:         r.fadeIn,
	}
	if err := r.backend.WriteUniforms(u); err != nil {
		return r.abort("write uniforms", err)
	}

	var draws, instances uint32
	for i := range layers {
		layer := &layers[i]
		if len(layer.Particles) == 0 {
			continue
		}
		if !r.gradientValid || r.lastGradient != layer.Gradient {
			if err := r.backend.UploadGradient(layer.Gradient); err != nil {
				r.gradientValid = false
				return r.abort(fmt.Sprintf("upload gradient (layer %d)", i), err)
			}
			r.lastGradient = layer.Gradient
			r.gradientValid = true
			r.stats.GradientUploads++
		}
		if err := r.backend.WriteInstances(layer.Particles); err != nil {
			return r.abort(fmt.Sprintf("write instances (layer %d)", i), err)
		}
		r.stats.InstanceUploads++

		count := uint32(len(layer.Particles))
		if err := r.backend.DrawInstanced(uint32(len(QuadVertices)), count); err != nil {
			return r.abort(fmt.Sprintf("draw (layer %d)", i), err)
		}
		draws++
		instances += count
	}

	if err := r.backend.EndFrame(); err != nil {
		return &OpError{Op: "end frame", Err: err}
	}

	r.stats.Frames++
	r.stats.DrawCalls += uint64(draws)
	r.stats.Instances += uint64(instances)
	r.stats.LastDrawCalls = draws
	r.stats.LastInstances = instances
	r.profiler.SetCount("layers", len(layers))
	r.profiler.SetCount("draw calls", int(draws))
	r.profiler.SetCount("particles", int(instances))
	return nil
}

// abort resets vertex state after a failed step so the next frame starts clean.
func (r *Renderer) abort(op string, err error) error {
	if endErr := r.backend.EndFrame(); endErr != nil {
		r.log.Warnf("end frame after failed %s: %v", op, endErr)
	}
	r.log.Errorf("%s: %v", op, err)
	return &OpError{Op: op, Err: err}
}

// Destroy releases every GPU resource. Later calls on r return ErrDestroyed.
func (r *Renderer) Destroy() error {
	if r.state == StateDestroyed {
		return ErrDestroyed
	}
	if r.backend != nil {
		r.backend.Release()
	}
	r.state = StateDestroyed
	r.gradientValid = false
	awparticles.OrNop(r.log).Debugf("particle renderer destroyed after %d frames", r.stats.Frames)
	return nil
}
