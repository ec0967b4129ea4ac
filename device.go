package forge

// Device IDs
//
// These opaque IDs represent device-side objects. Each backend maintains the
// mapping between IDs and its actual resources. IDs are uint64 to accommodate
// various backend handle sizes.

// BufferID is an opaque device handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque device handle to a GPU texture.
type TextureID uint64

// PipelineID is an opaque device handle to a compiled pipeline.
type PipelineID uint64

// InvalidID is the zero value, representing an invalid/null device object.
const InvalidID = 0

// Limits describes the capabilities of a Device. Descriptors are validated
// against these limits before the backend is asked to allocate.
type Limits struct {
	// MaxBufferSize is the maximum buffer size in bytes.
	MaxBufferSize uint64

	// MaxTextureDimension2D is the maximum width or height of a 2D texture.
	MaxTextureDimension2D uint32

	// MaxBindSlots is the maximum number of bind slots per pass.
	MaxBindSlots uint32

	// MaxComputeWorkgroupsPerDimension is the maximum workgroup count in
	// each dispatch dimension.
	MaxComputeWorkgroupsPerDimension uint32
}

// DefaultLimits returns the guaranteed baseline limits every backend must
// support. Values follow the WebGPU defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxBufferSize:                    256 << 20, // 256 MiB
		MaxTextureDimension2D:            8192,
		MaxBindSlots:                     8,
		MaxComputeWorkgroupsPerDimension: 65535,
	}
}

// Device is the boundary to the underlying GPU. forge treats it as an opaque
// collaborator: it allocates resources from descriptors, compiles pipelines,
// opens command-encoding sessions, and accepts finalized command streams for
// submission. How the device surfaces, presents, or synchronizes with a
// screen is not forge's concern.
//
// Implementations live under backend/ and register themselves with
// backend.Register. Implementations must be safe for sequential use from the
// single thread that owns the Context.
type Device interface {
	// Name returns the backend identifier (e.g., "null", "wgpu").
	Name() string

	// Limits returns the device capabilities.
	Limits() Limits

	// CreateBuffer allocates a buffer per the descriptor.
	// The descriptor has already passed forge's limit validation; backends
	// may still reject it for device-specific reasons.
	CreateBuffer(desc *BufferDescriptor) (BufferID, error)

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// CreateTexture allocates a texture per the descriptor.
	CreateTexture(desc *TextureDescriptor) (TextureID, error)

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// CreateComputePipeline compiles a compute pipeline. A failed build
	// must not leave partial state behind.
	CreateComputePipeline(desc *ComputePipelineDescriptor) (PipelineID, error)

	// CreateRenderPipeline compiles a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (PipelineID, error)

	// DestroyPipeline releases a pipeline. Unknown IDs are ignored.
	DestroyPipeline(id PipelineID)

	// WriteBuffer copies data into a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// WriteTexture copies tightly packed pixel rows into a texture.
	WriteTexture(id TextureID, data []byte, bytesPerRow uint32) error

	// NewEncoder opens a command-encoding session. At most one session is
	// open per Context at a time; forge enforces this above the backend.
	NewEncoder(label string) (CommandEncoder, error)

	// Submit hands a finalized command stream to the device queue.
	Submit(buf CommandBuffer) error

	// Close releases all device resources. The device must not be used
	// after Close.
	Close()
}

// CommandEncoder accumulates pass-scoped commands for one Frame. Commands
// are encoded strictly in call order; encoders perform no reordering,
// batching, or fusion.
//
// forge drives the encoder from its pass recorders; the bind/dispatch
// sequence it emits is already validated (live handles, one terminator per
// pass), so backends may encode without re-checking the recording contract.
type CommandEncoder interface {
	// BeginComputePass opens a compute pass scope.
	BeginComputePass(label string) error

	// BeginRenderPass opens a render pass scope targeting a texture.
	BeginRenderPass(label string, target TextureID) error

	// SetPipeline binds the pipeline for subsequent work in the open pass.
	SetPipeline(id PipelineID) error

	// BindBuffer binds a buffer to a bind slot in the open pass.
	BindBuffer(slot uint32, id BufferID) error

	// BindTexture binds a texture to a bind slot in the open pass.
	BindTexture(slot uint32, id TextureID) error

	// SetVertexBuffer binds a vertex buffer for the open render pass.
	SetVertexBuffer(slot uint32, id BufferID) error

	// Dispatch records a compute dispatch of x*y*z workgroups.
	Dispatch(x, y, z uint32) error

	// Draw records a draw of vertexCount vertices over instanceCount
	// instances.
	Draw(vertexCount, instanceCount uint32) error

	// EndPass closes the open pass scope.
	EndPass() error

	// Finish finalizes the session into a submittable command buffer.
	// The encoder must not be used after Finish.
	Finish() (CommandBuffer, error)

	// Discard abandons the session without producing a command buffer.
	Discard()
}

// CommandBuffer is a finalized command stream ready for submission.
// Its contents are opaque to forge; backends type-assert their own
// concrete type in Submit.
type CommandBuffer interface {
	// Label returns the debug label the stream was encoded under.
	Label() string
}
