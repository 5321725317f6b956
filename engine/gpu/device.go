package gpu

import (
	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// Device wraps the WebGPU instance/adapter/device/queue chain and implements
// simulation.Device. It can be created headless (no surface) for compute-only
// use, or from a surface when a viewer window exists; either way the
// simulation only needs frames and timestamp query-sets from it.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	hasTimestamps bool
}

// DeviceBuilderOption is a functional option for configuring a Device.
type DeviceBuilderOption func(*deviceConfig)

type deviceConfig struct {
	label                string
	surface              *wgpu.Surface
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
}

// WithDeviceLabel sets the debug label attached to the created device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithDeviceLabel(label string) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.label = label
	}
}

// WithCompatibleSurface requests an adapter compatible with the given
// surface. Omit for headless compute-only use.
//
// Parameters:
//   - surface: the surface the adapter must be able to present to
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithCompatibleSurface(surface *wgpu.Surface) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.surface = surface
	}
}

// WithSurfaceDescriptor creates a surface from the descriptor on the new
// device's instance and requests an adapter compatible with it. Use this
// when a viewer window will present frames from the same device that runs
// the simulation. The created surface is available via Surface().
//
// Parameters:
//   - descriptor: the platform-specific surface descriptor
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithSurfaceDescriptor(descriptor *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.surfaceDescriptor = descriptor
	}
}

// WithForceFallbackAdapter forces the software fallback adapter.
//
// Parameters:
//   - force: if true, request the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.forceFallbackAdapter = force
	}
}

// NewDevice creates the WebGPU device and queue. Timestamp-query support is
// detected on the adapter and the feature is requested only when present;
// when absent, NewTimestamps returns nil and profiling degrades silently.
//
// Parameters:
//   - options: functional options for device configuration
//
// Returns:
//   - *Device: the newly created device
//   - error: an error if adapter or device acquisition fails
func NewDevice(options ...DeviceBuilderOption) (*Device, error) {
	cfg := &deviceConfig{label: "Simulation Device"}
	for _, opt := range options {
		opt(cfg)
	}

	instance := wgpu.CreateInstance(nil)

	surface := cfg.surface
	if surface == nil && cfg.surfaceDescriptor != nil {
		surface = instance.CreateSurface(cfg.surfaceDescriptor)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    surface,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: request adapter")
	}

	hasTimestamps := adapter.HasFeature(wgpu.FeatureNameTimestampQuery)
	var features []wgpu.FeatureName
	if hasTimestamps {
		features = append(features, wgpu.FeatureNameTimestampQuery)
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            cfg.label,
		RequiredFeatures: features,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: request device")
	}

	return &Device{
		instance:      instance,
		adapter:       adapter,
		device:        device,
		queue:         device.GetQueue(),
		surface:       surface,
		hasTimestamps: hasTimestamps,
	}, nil
}

// BeginFrame creates a fresh command encoder for one frame's command batch.
//
// Returns:
//   - simulation.Frame: the new frame
//   - error: a device-level error
func (d *Device) BeginFrame() (simulation.Frame, error) {
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, errors.Wrap(err, "gpu: create command encoder")
	}
	return &Frame{encoder: encoder, queue: d.queue}, nil
}

// NewTimestamps creates a timestamp query-set holding the given number of
// samples, or nil when the device lacks timestamp-query support.
//
// Parameters:
//   - capacity: the number of timestamp samples the set must hold
//
// Returns:
//   - simulation.TimestampQueries: the live query-set, or nil if unsupported
func (d *Device) NewTimestamps(capacity int) simulation.TimestampQueries {
	if !d.hasTimestamps {
		return nil
	}
	t, err := newTimestamps(d, capacity)
	if err != nil {
		// Creation failure is treated like missing support: no timing data,
		// never an error surfaced to the frame loop.
		return nil
	}
	return t
}

// Raw returns the underlying wgpu device, for buffer and pipeline creation by
// the kernel owner.
//
// Returns:
//   - *wgpu.Device: the wrapped device
func (d *Device) Raw() *wgpu.Device {
	return d.device
}

// Queue returns the underlying wgpu queue.
//
// Returns:
//   - *wgpu.Queue: the wrapped queue
func (d *Device) Queue() *wgpu.Queue {
	return d.queue
}

// Adapter returns the underlying wgpu adapter.
//
// Returns:
//   - *wgpu.Adapter: the wrapped adapter
func (d *Device) Adapter() *wgpu.Adapter {
	return d.adapter
}

// Surface returns the surface created via WithSurfaceDescriptor, or nil for
// a headless device.
//
// Returns:
//   - *wgpu.Surface: the surface, or nil
func (d *Device) Surface() *wgpu.Surface {
	return d.surface
}

// SupportsTimestamps reports whether the device can capture GPU timestamps.
//
// Returns:
//   - bool: true when timestamp queries are available
func (d *Device) SupportsTimestamps() bool {
	return d.hasTimestamps
}

// CreateComputePipeline creates a compute pipeline from WGSL source using an
// auto-derived pipeline layout.
//
// Parameters:
//   - label: debug label for the shader module and pipeline
//   - source: the WGSL source code
//   - entryPoint: the compute entry point function name
//
// Returns:
//   - *wgpu.ComputePipeline: the created pipeline
//   - error: an error if shader or pipeline creation fails
func (d *Device) CreateComputePipeline(label, source, entryPoint string) (*wgpu.ComputePipeline, error) {
	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "gpu: create shader module %q", label)
	}

	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label + " Compute Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: entryPoint,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "gpu: create compute pipeline %q", label)
	}
	return pipeline, nil
}

var _ simulation.Device = &Device{}

// Release frees the device, queue, and adapter resources.
func (d *Device) Release() {
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
