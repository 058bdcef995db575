package core

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// ParticleInstance is one live particle as the simulation hands it to the renderer.
// The layout matches the two instance attributes of particle.vert.wgsl:
//
//	@location(1) vec4 = (ttl, position.xyz)   offset 0
//	@location(2) vec4 = (velocity.xyz, size)  offset 16
type ParticleInstance struct {
	TTL      float32 // seconds left to live
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Size     float32
}

const (
	ParticleInstanceSize      = uint64(unsafe.Sizeof(ParticleInstance{}))
	ParticleTTLPositionOffset = uint64(unsafe.Offsetof(ParticleInstance{}.TTL))
	ParticleVelocityOffset    = uint64(unsafe.Offsetof(ParticleInstance{}.Velocity))
)

// Layer groups the particles drawn with one gradient.
// Particles is rebuilt by the simulation every frame; the renderer only reads it.
type Layer struct {
	Gradient  Gradient
	Particles []ParticleInstance
}

func CountParticles(layers []Layer) int {
	n := 0
	for _, l := range layers {
		n += len(l.Particles)
	}
	return n
}
