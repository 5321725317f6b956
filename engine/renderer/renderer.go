package renderer

import (
	"github.com/Carmen-Shannon/mpm-go/engine/gpu"
	"github.com/Carmen-Shannon/mpm-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	backend RendererBackend

	// Pre-creation config collected from builder options
	pendingPresentMode *PresentMode
	pendingMSAA        *MSAASampleCount
	clearColor         wgpu.Color
}

// Renderer draws the particle render buffer to the viewer window.
//
// The renderer shares the simulation's GPU device, so the instance buffer the
// repack kernel writes each frame can be drawn without any cross-device copy.
// A frame is BeginFrame, DrawParticles, EndFrame, Present in that order.
type Renderer interface {
	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SetViewProjection uploads the camera's view-projection matrix used to
	// place particles on screen.
	//
	// Parameters:
	//   - viewProj: the 4x4 view-projection matrix, column-major
	SetViewProjection(viewProj [16]float32)

	// SetParticleBuffer points the particle draw at the render instance
	// buffer. The buffer is owned by the caller and must be laid out per
	// ParticleInstanceStride.
	//
	// Parameters:
	//   - buffer: the GPU buffer holding packed particle instances
	//   - count: the number of instances to draw
	SetParticleBuffer(buffer *wgpu.Buffer, count uint32)

	// BeginFrame acquires the swapchain texture and begins the render pass.
	// Must be paired with EndFrame and Present within a single frame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawParticles encodes the instanced particle draw within the current
	// render pass. No-op when no particle buffer has been set.
	DrawParticles()

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface — call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// RenderFrame runs one full frame: BeginFrame, DrawParticles, EndFrame,
	// Present. Convenience for hosts with no extra draws.
	//
	// Returns:
	//   - error: an error if the frame could not be started
	RenderFrame() error

	// Release frees GPU resources owned by the renderer. The shared device
	// belongs to the caller and is not released.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a particle Renderer on top of the shared simulation
// device. The device must have been created with WithSurfaceDescriptor for
// the viewer window so the adapter can present to it.
//
// Parameters:
//   - device: the shared GPU device
//   - win: the viewer window providing the surface and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified options
func NewRenderer(device *gpu.Device, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		clearColor: wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}

	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	r.backend = newWGPURendererBackend(device, msaa, r.clearColor)

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(win.Width(), win.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) SetViewProjection(viewProj [16]float32) {
	r.backend.WriteView(viewProj)
}

func (r *renderer) SetParticleBuffer(buffer *wgpu.Buffer, count uint32) {
	r.backend.SetInstanceBuffer(buffer, count)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawParticles() {
	r.backend.DrawParticles()
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) RenderFrame() error {
	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	r.backend.DrawParticles()
	r.backend.EndFrame()
	r.backend.Present()
	return nil
}

func (r *renderer) Release() {
	r.backend.Release()
}
