package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/awparticles/core"
)

const (
	// mat4x4<f32> followed by three f32, padded to the struct's 16 byte alignment.
	uniformSize = 80

	gradientWidth = 2

	instanceMargin = 128
)

var ErrNoTarget = errors.New("no render target set")

// gradientSlot is one gradient texture with the bind group that samples it.
type gradientSlot struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

func (s *gradientSlot) release() {
	if s.bindGroup != nil {
		s.bindGroup.Release()
	}
	if s.view != nil {
		s.view.Release()
	}
	if s.texture != nil {
		s.texture.Release()
	}
}

// WgpuBackend implements Backend on a WebGPU device. Layers are recorded
// during the frame and replayed by EndFrame in a single render pass: the
// instances of every layer share one buffer at per-layer offsets, and every
// gradient uploaded in the frame gets its own texture and bind group.
type WgpuBackend struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	format wgpu.TextureFormat

	pipeline        *wgpu.RenderPipeline
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout

	quadBuffer     *wgpu.Buffer
	quadCount      uint32
	uniformBuffer  *wgpu.Buffer
	instanceBuffer *wgpu.Buffer
	instanceCap    uint32

	sampler *wgpu.Sampler
	slots   []*gradientSlot
	batch   frameBatch

	target  *wgpu.TextureView
	inFrame bool
}

func NewWgpuBackend(device *wgpu.Device, format wgpu.TextureFormat) *WgpuBackend {
	return &WgpuBackend{
		device: device,
		queue:  device.GetQueue(),
		format: format,
	}
}

// SetTarget selects the texture view the following frames draw into.
func (b *WgpuBackend) SetTarget(view *wgpu.TextureView) {
	b.target = view
}

func (b *WgpuBackend) Init(src ShaderSource, quad []mgl32.Vec2) error {
	if len(quad) == 0 {
		return errors.New("empty quad")
	}

	vsModule, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ParticleVS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src.Vertex},
	})
	if err != nil {
		return fmt.Errorf("vertex shader: %w", err)
	}
	defer vsModule.Release()

	fsModule, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ParticleFS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: src.Fragment},
	})
	if err != nil {
		return fmt.Errorf("fragment shader: %w", err)
	}
	defer fsModule.Release()

	b.bindGroupLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ParticleBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension1D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("bind group layout: %w", err)
	}

	b.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ParticlePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bindGroupLayout},
	})
	if err != nil {
		return fmt.Errorf("pipeline layout: %w", err)
	}

	b.pipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ParticlePipeline",
		Layout: b.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vsModule,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 8,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					},
				},
				{
					ArrayStride: core.ParticleInstanceSize,
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x4, Offset: core.ParticleTTLPositionOffset, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x4, Offset: core.ParticleVelocityOffset, ShaderLocation: 2},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.format,
					WriteMask: wgpu.ColorWriteMaskAll,
					// Additive: overlapping particles brighten.
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOne,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOne,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: nil,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("render pipeline: %w", err)
	}

	b.quadBuffer, err = b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "ParticleQuadVB",
		Contents: wgpu.ToBytes(quad),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return fmt.Errorf("quad buffer: %w", err)
	}
	b.quadCount = uint32(len(quad))

	b.uniformBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleUniforms",
		Size:  uniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("uniform buffer: %w", err)
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0.,
		LodMaxClamp:   1.,
		Compare:       wgpu.CompareFunctionUndefined,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("gradient sampler: %w", err)
	}

	slot, err := b.newGradientSlot()
	if err != nil {
		return err
	}
	b.slots = append(b.slots, slot)
	return nil
}

func (b *WgpuBackend) newGradientSlot() (*gradientSlot, error) {
	s := &gradientSlot{}
	var err error
	s.texture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "ParticleGradient",
		Size:          wgpu.Extent3D{Width: gradientWidth, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension1D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gradient texture: %w", err)
	}
	s.view, err = s.texture.CreateView(nil)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("gradient view: %w", err)
	}
	s.bindGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleBG",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.uniformBuffer, Size: uniformSize},
			{Binding: 1, TextureView: s.view},
			{Binding: 2, Sampler: b.sampler},
		},
	})
	if err != nil {
		s.release()
		return nil, fmt.Errorf("bind group: %w", err)
	}
	return s, nil
}

func (b *WgpuBackend) BeginFrame() error {
	if b.target == nil {
		return ErrNoTarget
	}
	if b.pipeline == nil || len(b.slots) == 0 {
		return errors.New("backend not initialized")
	}
	carried := b.batch.begin()
	b.slots[0], b.slots[carried] = b.slots[carried], b.slots[0]
	b.inFrame = true
	return nil
}

func (b *WgpuBackend) WriteUniforms(u Uniforms) error {
	var buf [uniformSize]byte
	// mgl32 matrices are column major, as WGSL expects.
	for i, v := range u.ViewProjection {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(u.SimulationTime))
	binary.LittleEndian.PutUint32(buf[68:], math.Float32bits(u.LifeSpan))
	binary.LittleEndian.PutUint32(buf[72:], math.Float32bits(u.FadeIn))
	return b.queue.WriteBuffer(b.uniformBuffer, 0, buf[:])
}

// UploadGradient writes g into a slot no draw of this frame uses yet, so
// earlier layers keep sampling their own gradient.
func (b *WgpuBackend) UploadGradient(g core.Gradient) error {
	if !b.inFrame {
		return errors.New("gradient upload outside of a frame")
	}
	next := b.batch.nextSlot()
	if next == len(b.slots) {
		slot, err := b.newGradientSlot()
		if err != nil {
			return err
		}
		b.slots = append(b.slots, slot)
	}
	extent := wgpu.Extent3D{Width: gradientWidth, Height: 1, DepthOrArrayLayers: 1}
	err := b.queue.WriteTexture(
		b.slots[next].texture.AsImageCopy(),
		g.Texels(),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  gradientWidth * 4,
			RowsPerImage: 1,
		},
		&extent,
	)
	if err != nil {
		return err
	}
	b.batch.uploaded()
	return nil
}

// WriteInstances stages one layer's particles behind the previous layers'.
func (b *WgpuBackend) WriteInstances(instances []core.ParticleInstance) error {
	if !b.inFrame {
		return errors.New("instance write outside of a frame")
	}
	b.batch.stage(instances)
	return nil
}

func (b *WgpuBackend) DrawInstanced(vertexCount, instanceCount uint32) error {
	if !b.inFrame {
		return errors.New("draw outside of a frame")
	}
	if b.target == nil {
		return ErrNoTarget
	}
	return b.batch.record(vertexCount, instanceCount)
}

// EndFrame uploads the staged instances and replays the recorded draws in
// one render pass and one submit.
func (b *WgpuBackend) EndFrame() error {
	if !b.inFrame {
		return nil
	}
	b.inFrame = false
	if len(b.batch.draws) == 0 {
		return nil
	}
	if b.target == nil {
		return ErrNoTarget
	}
	staged := b.batch.staged
	if err := b.ensureInstanceCapacity(uint32(len(staged))); err != nil {
		return err
	}
	if err := b.queue.WriteBuffer(b.instanceBuffer, 0, wgpu.ToBytes(staged)); err != nil {
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "ParticlePass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    b.target,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(b.pipeline)
	pass.SetVertexBuffer(0, b.quadBuffer, 0, wgpu.WholeSize)
	pass.SetVertexBuffer(1, b.instanceBuffer, 0, wgpu.WholeSize)
	bound := -1
	for _, d := range b.batch.draws {
		if d.slot != bound {
			pass.SetBindGroup(0, b.slots[d.slot].bindGroup, nil)
			bound = d.slot
		}
		pass.Draw(d.vertexCount, d.instanceCount, 0, d.firstInstance)
	}
	if err := pass.End(); err != nil {
		pass.Release()
		return err
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmd.Release()
	b.queue.Submit(cmd)
	return nil
}

// ensureInstanceCapacity grows the instance buffer only when count exceeds it.
func (b *WgpuBackend) ensureInstanceCapacity(count uint32) error {
	if b.instanceBuffer != nil && b.instanceCap >= count {
		return nil
	}
	if b.instanceBuffer != nil {
		b.instanceBuffer.Release()
		b.instanceBuffer = nil
	}
	capacity := count + instanceMargin
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleInstanceVB",
		Size:  uint64(capacity) * core.ParticleInstanceSize,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		b.instanceCap = 0
		return err
	}
	b.instanceBuffer = buf
	b.instanceCap = capacity
	return nil
}

func (b *WgpuBackend) Release() {
	for _, s := range b.slots {
		s.release()
	}
	b.slots = nil
	b.batch.reset()
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	if b.instanceBuffer != nil {
		b.instanceBuffer.Release()
		b.instanceBuffer = nil
		b.instanceCap = 0
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.quadBuffer != nil {
		b.quadBuffer.Release()
		b.quadBuffer = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.pipelineLayout != nil {
		b.pipelineLayout.Release()
		b.pipelineLayout = nil
	}
	if b.bindGroupLayout != nil {
		b.bindGroupLayout.Release()
		b.bindGroupLayout = nil
	}
	b.target = nil
	b.inFrame = false
}
