package forge

import (
	"encoding/binary"
	"hash"
	"hash/fnv"

	"github.com/gogpu/gputypes"
)

// BufferDescriptor declares the size and usage of a buffer. It is immutable
// once the buffer is created: the usage flags declared here are the only
// operations permitted on the buffer for its lifetime, and buffers are never
// resized in place.
type BufferDescriptor struct {
	// Label is an optional debug name, carried through to the backend.
	Label string

	// Size is the buffer size in bytes. Must be non-zero and within
	// the device's MaxBufferSize.
	Size uint64

	// Usage specifies how the buffer may be used (storage, vertex,
	// copy-destination, ...). Must be non-empty.
	Usage gputypes.BufferUsage
}

// TextureDescriptor declares the dimensions, format, and usage of a texture.
// Immutable once the texture is created.
type TextureDescriptor struct {
	// Label is an optional debug name, carried through to the backend.
	Label string

	// Size is the texture extent. Width and Height must be non-zero and
	// within the device's MaxTextureDimension2D; DepthOrArrayLayers
	// defaults to 1 when zero.
	Size gputypes.Extent3D

	// Dimension is the texture dimensionality.
	Dimension gputypes.TextureDimension

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture may be used. Must be non-empty.
	Usage gputypes.TextureUsage

	// MipLevelCount is the number of mip levels. Defaults to 1 when zero.
	MipLevelCount uint32

	// SampleCount is the number of samples per texel. Defaults to 1.
	SampleCount uint32
}

// ShaderStage is a bitmask of pipeline stages a binding is visible to.
// Backends translate these to their native visibility flags.
type ShaderStage uint32

// Shader stage flags.
const (
	// StageVertex makes a binding visible to the vertex stage.
	StageVertex ShaderStage = 1 << 0

	// StageFragment makes a binding visible to the fragment stage.
	StageFragment ShaderStage = 1 << 1

	// StageCompute makes a binding visible to the compute stage.
	StageCompute ShaderStage = 1 << 2
)

// BindingType identifies what kind of resource a bind slot carries.
type BindingType uint8

// Binding types.
const (
	// BindingUniformBuffer is a read-only uniform buffer binding.
	BindingUniformBuffer BindingType = iota + 1

	// BindingStorageBuffer is a read-write storage buffer binding.
	BindingStorageBuffer

	// BindingReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingReadOnlyStorageBuffer

	// BindingTexture is a sampled texture binding.
	BindingTexture
)

// BindingLayout declares one slot of a pipeline's bind-group layout.
type BindingLayout struct {
	// Binding is the slot index the shader binds at.
	Binding uint32

	// Visibility is the set of stages that can see the binding.
	Visibility ShaderStage

	// Type is the kind of resource bound at the slot.
	Type BindingType
}

// ShaderSource references shader code by an opaque identifier plus its
// source text. forge treats the contents as unvalidated until pipeline
// build time; a malformed shader surfaces as ErrPipelineBuild, never
// earlier.
type ShaderSource struct {
	// Label identifies the shader for debugging (typically a file path).
	Label string

	// WGSL is the shader source text.
	WGSL string
}

// ComputePipelineDescriptor identifies a compute pipeline by shader, entry
// point, and bind layout set. It doubles as the pipeline cache key: two
// descriptors that are structurally equal name the same pipeline.
type ComputePipelineDescriptor struct {
	// Label is an optional debug name. It does not participate in cache
	// identity.
	Label string

	// Shader is the compute shader source.
	Shader ShaderSource

	// EntryPoint is the compute entry function name. Defaults to "main"
	// when empty.
	EntryPoint string

	// Bindings declares the bind-group layout.
	Bindings []BindingLayout
}

// RenderPipelineDescriptor identifies a render pipeline. Like the compute
// variant it is a structural cache key.
type RenderPipelineDescriptor struct {
	// Label is an optional debug name. It does not participate in cache
	// identity.
	Label string

	// Shader is the shader source holding both vertex and fragment
	// entry points.
	Shader ShaderSource

	// VertexEntryPoint defaults to "vs_main" when empty.
	VertexEntryPoint string

	// FragmentEntryPoint defaults to "fs_main" when empty.
	FragmentEntryPoint string

	// Bindings declares the bind-group layout.
	Bindings []BindingLayout

	// VertexBuffers describes the vertex buffer layouts.
	VertexBuffers []VertexBufferLayout

	// Topology is the primitive type. Defaults to triangle list.
	Topology gputypes.PrimitiveTopology

	// FrontFace defines which winding is front-facing.
	FrontFace gputypes.FrontFace

	// CullMode defines which faces to cull.
	CullMode gputypes.CullMode

	// ColorFormat is the format of the color target.
	ColorFormat gputypes.TextureFormat

	// SampleCount is the number of samples per pixel. Defaults to 1.
	SampleCount uint32
}

// VertexBufferLayout describes one vertex buffer slot.
type VertexBufferLayout struct {
	// ArrayStride is the byte stride between consecutive vertices.
	ArrayStride uint64

	// StepMode is the input rate (per vertex or per instance).
	StepMode gputypes.VertexStepMode

	// Attributes describes the vertex attributes in this buffer.
	Attributes []VertexAttribute
}

// VertexAttribute describes a single vertex attribute.
type VertexAttribute struct {
	// ShaderLocation is the attribute location in the shader.
	ShaderLocation uint32

	// Format is the attribute data format.
	Format gputypes.VertexFormat

	// Offset is the byte offset from the start of the vertex.
	Offset uint64
}

// =============================================================================
// Cache identity: structural hashing and equality
// =============================================================================

// Pipelines are cached by value, not identity: the hash selects a bucket and
// a full structural comparison confirms the match, so fnv collisions can
// never alias two distinct pipelines.

// hashCompute computes an FNV-1a hash over every field of the descriptor
// that participates in cache identity. Label is excluded.
func hashCompute(desc *ComputePipelineDescriptor) uint64 {
	h := fnv.New64a()
	hashWriteString(h, desc.Shader.WGSL)
	hashWriteString(h, desc.effectiveEntryPoint())
	hashBindings(h, desc.Bindings)
	return h.Sum64()
}

// hashRender computes an FNV-1a hash over the render descriptor's identity
// fields. Label is excluded.
func hashRender(desc *RenderPipelineDescriptor) uint64 {
	h := fnv.New64a()
	hashWriteString(h, desc.Shader.WGSL)
	hashWriteString(h, desc.effectiveVertexEntry())
	hashWriteString(h, desc.effectiveFragmentEntry())
	hashBindings(h, desc.Bindings)

	hashWriteUint32(h, uint32(len(desc.VertexBuffers)))
	for i := range desc.VertexBuffers {
		layout := &desc.VertexBuffers[i]
		hashWriteUint64(h, layout.ArrayStride)
		hashWriteUint32(h, uint32(layout.StepMode))
		hashWriteUint32(h, uint32(len(layout.Attributes)))
		for j := range layout.Attributes {
			attr := &layout.Attributes[j]
			hashWriteUint32(h, attr.ShaderLocation)
			hashWriteUint32(h, uint32(attr.Format))
			hashWriteUint64(h, attr.Offset)
		}
	}

	hashWriteUint32(h, uint32(desc.Topology))
	hashWriteUint32(h, uint32(desc.FrontFace))
	hashWriteUint32(h, uint32(desc.CullMode))
	hashWriteUint32(h, uint32(desc.ColorFormat))
	hashWriteUint32(h, desc.effectiveSampleCount())
	return h.Sum64()
}

func hashBindings(h hash.Hash64, bindings []BindingLayout) {
	hashWriteUint32(h, uint32(len(bindings)))
	for _, b := range bindings {
		hashWriteUint32(h, b.Binding)
		hashWriteUint32(h, uint32(b.Visibility))
		hashWriteUint32(h, uint32(b.Type))
	}
}

// equalCompute reports full structural equality of identity fields.
func equalCompute(a, b *ComputePipelineDescriptor) bool {
	if a.Shader.WGSL != b.Shader.WGSL {
		return false
	}
	if a.effectiveEntryPoint() != b.effectiveEntryPoint() {
		return false
	}
	return equalBindings(a.Bindings, b.Bindings)
}

// equalRender reports full structural equality of identity fields.
func equalRender(a, b *RenderPipelineDescriptor) bool {
	if a.Shader.WGSL != b.Shader.WGSL {
		return false
	}
	if a.effectiveVertexEntry() != b.effectiveVertexEntry() ||
		a.effectiveFragmentEntry() != b.effectiveFragmentEntry() {
		return false
	}
	if !equalBindings(a.Bindings, b.Bindings) {
		return false
	}
	if len(a.VertexBuffers) != len(b.VertexBuffers) {
		return false
	}
	for i := range a.VertexBuffers {
		la, lb := &a.VertexBuffers[i], &b.VertexBuffers[i]
		if la.ArrayStride != lb.ArrayStride || la.StepMode != lb.StepMode {
			return false
		}
		if len(la.Attributes) != len(lb.Attributes) {
			return false
		}
		for j := range la.Attributes {
			if la.Attributes[j] != lb.Attributes[j] {
				return false
			}
		}
	}
	return a.Topology == b.Topology &&
		a.FrontFace == b.FrontFace &&
		a.CullMode == b.CullMode &&
		a.ColorFormat == b.ColorFormat &&
		a.effectiveSampleCount() == b.effectiveSampleCount()
}

func equalBindings(a, b []BindingLayout) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// effectiveEntryPoint returns the entry point with the default applied.
func (d *ComputePipelineDescriptor) effectiveEntryPoint() string {
	if d.EntryPoint == "" {
		return "main"
	}
	return d.EntryPoint
}

func (d *RenderPipelineDescriptor) effectiveVertexEntry() string {
	if d.VertexEntryPoint == "" {
		return "vs_main"
	}
	return d.VertexEntryPoint
}

func (d *RenderPipelineDescriptor) effectiveFragmentEntry() string {
	if d.FragmentEntryPoint == "" {
		return "fs_main"
	}
	return d.FragmentEntryPoint
}

func (d *RenderPipelineDescriptor) effectiveSampleCount() uint32 {
	if d.SampleCount == 0 {
		return 1
	}
	return d.SampleCount
}

// =============================================================================
// Hash helpers
// =============================================================================

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteString writes a length-prefixed string to the hash.
func hashWriteString(h hash.Hash64, s string) {
	hashWriteUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}
