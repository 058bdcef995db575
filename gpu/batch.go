package gpu

import (
	"fmt"

	"github.com/gekko3d/awparticles/core"
)

// layerDraw is one recorded DrawInstanced, replayed when the frame ends.
type layerDraw struct {
	slot          int
	vertexCount   uint32
	firstInstance uint32
	instanceCount uint32
}

// frameBatch is the CPU side of a backend frame: the instances of every layer
// packed back to back, the draws that reference them, and which gradient slot
// each draw samples.
type frameBatch struct {
	staged     []core.ParticleInstance
	layerStart uint32
	draws      []layerDraw

	current int // slot holding the last uploaded gradient
	used    int // slots [0, used) are referenced by this frame
}

// begin starts a frame. The gradient carried over from the last frame moves
// to slot 0; begin returns the slot it was in so the caller can swap.
func (f *frameBatch) begin() (carried int) {
	carried = f.current
	f.current, f.used = 0, 1
	f.staged = f.staged[:0]
	f.layerStart = 0
	f.draws = f.draws[:0]
	return carried
}

// nextSlot is where the next gradient upload goes. No draw of this frame
// samples it yet.
func (f *frameBatch) nextSlot() int { return f.used }

// uploaded makes nextSlot the gradient of the following draws.
func (f *frameBatch) uploaded() {
	f.current = f.used
	f.used++
}

func (f *frameBatch) stage(instances []core.ParticleInstance) {
	f.layerStart = uint32(len(f.staged))
	f.staged = append(f.staged, instances...)
}

func (f *frameBatch) record(vertexCount, instanceCount uint32) error {
	written := uint32(len(f.staged)) - f.layerStart
	if instanceCount > written {
		return fmt.Errorf("%d instances exceed the %d written", instanceCount, written)
	}
	f.draws = append(f.draws, layerDraw{
		slot:          f.current,
		vertexCount:   vertexCount,
		firstInstance: f.layerStart,
		instanceCount: instanceCount,
	})
	return nil
}

func (f *frameBatch) reset() {
	*f = frameBatch{}
}
