package gpu

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/awparticles/core"
)

// ShaderSource is the WGSL text of the particle program.
type ShaderSource struct {
	Vertex   string // entry point vs_main
	Fragment string // entry point fs_main
}

// Uniforms is the block written once per Render, before any layer is drawn.
type Uniforms struct {
	ViewProjection mgl32.Mat4
	SimulationTime float32
	LifeSpan       float32 // seconds a particle takes to run through the gradient
	FadeIn         float32 // share of LifeSpan over which a new particle fades in
}

// Backend is the slice of a graphics API the particle renderer drives.
// All methods are called from the thread that owns the device.
type Backend interface {
	// Init compiles the program and creates the static quad, the instance
	// stream, the uniform block and the gradient texture.
	Init(src ShaderSource, quad []mgl32.Vec2) error
	// BeginFrame disables depth testing, enables additive blending and
	// binds the program.
	BeginFrame() error
	WriteUniforms(u Uniforms) error
	UploadGradient(g core.Gradient) error
	// WriteInstances streams the particles of one layer, reusing the
	// instance buffer unless it is too small.
	WriteInstances(instances []core.ParticleInstance) error
	DrawInstanced(vertexCount, instanceCount uint32) error
	// EndFrame resets bound vertex state.
	EndFrame() error
	Release()
}

// QuadVertices is the unit quad every particle is drawn as, in triangle
// strip order.
var QuadVertices = []mgl32.Vec2{
	{-0.5, -0.5},
	{0.5, -0.5},
	{-0.5, 0.5},
	{0.5, 0.5},
}
