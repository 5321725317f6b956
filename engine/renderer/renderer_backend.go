package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8
)

// RendererBackend is the GPU-API backend interface for the particle Renderer.
// The only implementation targets WebGPU; the split keeps the surface and
// pass management testable apart from the public Renderer API.
type RendererBackend interface {
	// ConfigureSurface (re)configures the presentation surface for a new size.
	// Also rebuilds the MSAA color target when MSAA is enabled.
	//
	// Parameters:
	//   - width: surface width in pixels
	//   - height: surface height in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the
	// next ConfigureSurface call.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// WriteView uploads the column-major view-projection matrix used by the
	// particle vertex shader.
	//
	// Parameters:
	//   - viewProj: the 4x4 view-projection matrix, column-major
	WriteView(viewProj [16]float32)

	// SetInstanceBuffer points the particle draw at an externally owned
	// instance buffer laid out per ParticleInstanceStride.
	//
	// Parameters:
	//   - buffer: the GPU buffer holding packed particle instances
	//   - count: the number of instances to draw
	SetInstanceBuffer(buffer *wgpu.Buffer, count uint32)

	// BeginFrame acquires the swapchain texture and begins the render pass.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawParticles encodes the instanced particle draw into the current
	// render pass. No-op when no instance buffer is set or count is zero.
	DrawParticles()

	// EndFrame ends the render pass and submits the command buffer.
	EndFrame()

	// Present presents the surface and releases the swapchain texture.
	Present()

	// Release frees GPU resources owned by the backend. The shared device is
	// not released; it belongs to the caller.
	Release()
}
