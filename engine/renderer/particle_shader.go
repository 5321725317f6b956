package renderer

// Particle instance record layout, one record per particle, written on the
// GPU by the render repack kernel and consumed by the draw below:
//
//	offset 0  position  vec2<f32>
//	offset 8  radius    f32
//	offset 12 color     unorm8x4
const (
	// ParticleInstanceStride is the byte stride of one packed particle
	// instance in the render buffer.
	ParticleInstanceStride = 16
)

// particleShaderSource draws particles as camera-facing quads expanded from
// the instance position and radius, clipped to circles in the fragment stage.
const particleShaderSource = `
struct ViewUniform {
    view_proj: mat4x4<f32>,
};

@group(0) @binding(0) var<uniform> view: ViewUniform;

struct VertexInput {
    @location(0) corner: vec2<f32>,
    @location(1) position: vec2<f32>,
    @location(2) radius: f32,
    @location(3) color: vec4<f32>,
};

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) color: vec4<f32>,
    @location(1) local: vec2<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let world = in.position + in.corner * in.radius;
    out.clip_position = view.view_proj * vec4<f32>(world, 0.0, 1.0);
    out.color = in.color;
    out.local = in.corner;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    if (dot(in.local, in.local) > 1.0) {
        discard;
    }
    return in.color;
}
`
