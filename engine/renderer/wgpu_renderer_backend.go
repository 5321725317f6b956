package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/mpm-go/common"
	"github.com/Carmen-Shannon/mpm-go/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuRendererBackendImpl renders packed particle instances through a shared
// simulation device. The render pass draws one instanced quad per particle
// from the instance buffer the repack kernel fills each frame.
type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	device  *gpu.Device
	surface *wgpu.Surface

	surfaceFormat *wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	sampleCount   MSAASampleCount
	clearColor    wgpu.Color

	msaaTextureView      *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	pipeline      *wgpu.RenderPipeline
	viewBuffer    *wgpu.Buffer
	viewBindGroup *wgpu.BindGroup

	quadVertexBuffer *wgpu.Buffer
	quadIndexBuffer  *wgpu.Buffer

	instanceBuffer *wgpu.Buffer
	instanceCount  uint32

	// Per-frame state between BeginFrame and Present.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// Unit quad expanded per-instance by the vertex shader.
var quadCorners = []float32{
	-1, -1,
	1, -1,
	1, 1,
	-1, 1,
}

var quadIndices = []uint16{0, 1, 2, 0, 2, 3}

func newWGPURendererBackend(device *gpu.Device, sampleCount MSAASampleCount, clearColor wgpu.Color) RendererBackend {
	if device.Surface() == nil {
		panic("renderer requires a device created with a surface descriptor")
	}

	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		device:      device,
		surface:     device.Surface(),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
		clearColor:  clearColor,
	}

	raw := device.Raw()

	vb, err := raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Particle Quad Vertex Buffer",
		Size:  uint64(len(quadCorners) * 4),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	device.Queue().WriteBuffer(vb, 0, common.SliceToBytes(quadCorners))
	b.quadVertexBuffer = vb

	ib, err := raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Particle Quad Index Buffer",
		Size:  uint64(len(quadIndices) * 2),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	device.Queue().WriteBuffer(ib, 0, common.SliceToBytes(quadIndices))
	b.quadIndexBuffer = ib

	viewBuf, err := raw.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "View Uniform Buffer",
		Size:  64,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	b.viewBuffer = viewBuf

	// Identity until the camera writes a real matrix.
	b.WriteView([16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})

	return b
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	adapter := b.device.Adapter()
	raw := b.device.Raw()

	capabilities := b.surface.GetCapabilities(adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(adapter, raw, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the resolved result
		// lands in the swapchain view set per-frame as the ResolveTarget.
		msaaTexture, err := raw.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	} else {
		b.msaaTextureView = nil
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    b.clearColor,
			},
		},
	}

	if b.pipeline == nil {
		if err := b.createParticlePipeline(); err != nil {
			panic(err)
		}
	}
}

// createParticlePipeline builds the instanced particle render pipeline.
// Requires the surface format, so it runs on first ConfigureSurface.
func (b *wgpuRendererBackendImpl) createParticlePipeline() error {
	raw := b.device.Raw()

	module, err := raw.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Particle Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: particleShaderSource,
		},
	})
	if err != nil {
		return err
	}

	viewLayout, err := raw.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "View Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: 64,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	b.viewBindGroup, err = raw.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "View Bind Group",
		Layout: viewLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  b.viewBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return err
	}

	pipelineLayout, err := raw.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Particle Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{viewLayout},
	})
	if err != nil {
		return err
	}

	b.pipeline, err = raw.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Particle Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
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
					ArrayStride: ParticleInstanceStride,
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32, Offset: 8, ShaderLocation: 2},
						{Format: wgpu.VertexFormatUnorm8x4, Offset: 12, ShaderLocation: 3},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format: *b.surfaceFormat,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
						Alpha: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
					},
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	})
	return err
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuRendererBackendImpl) WriteView(viewProj [16]float32) {
	b.device.Queue().WriteBuffer(b.viewBuffer, 0, common.StructToBytes(&viewProj))
}

func (b *wgpuRendererBackendImpl) SetInstanceBuffer(buffer *wgpu.Buffer, count uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.instanceBuffer = buffer
	b.instanceCount = count
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A held surface texture from a frame that was never presented would make
	// the next acquisition fail with a validation error inside wgpu-native.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.Raw().CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) DrawParticles() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.instanceBuffer == nil || b.instanceCount == 0 {
		return
	}

	b.framePass.SetPipeline(b.pipeline)
	b.framePass.SetBindGroup(0, b.viewBindGroup, nil)
	b.framePass.SetVertexBuffer(0, b.quadVertexBuffer, 0, wgpu.WholeSize)
	b.framePass.SetVertexBuffer(1, b.instanceBuffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(b.quadIndexBuffer, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(len(quadIndices)), b.instanceCount, 0, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.device.Queue().Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.quadVertexBuffer != nil {
		b.quadVertexBuffer.Release()
		b.quadVertexBuffer = nil
	}
	if b.quadIndexBuffer != nil {
		b.quadIndexBuffer.Release()
		b.quadIndexBuffer = nil
	}
	if b.viewBuffer != nil {
		b.viewBuffer.Release()
		b.viewBuffer = nil
	}
}
