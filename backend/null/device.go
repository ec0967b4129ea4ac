package null

import (
	"errors"
	"fmt"

	"github.com/gogpu/forge"
	"github.com/gogpu/forge/backend"
)

func init() {
	backend.Register(backend.DriverNull, func() (forge.Device, error) {
		return New(), nil
	})
}

// Device errors.
var (
	// ErrUnknownID is returned for writes against an ID the device never
	// issued.
	ErrUnknownID = errors.New("null: unknown device ID")

	// ErrClosed is returned for operations on a closed device.
	ErrClosed = errors.New("null: device closed")
)

// Device is an in-memory forge.Device. Buffers hold real byte storage so
// uploads can be verified; pipelines record their descriptors; submitted
// frames are retained for inspection.
type Device struct {
	limits forge.Limits
	closed bool

	nextID uint64

	buffers  map[forge.BufferID][]byte
	textures map[forge.TextureID]forge.TextureDescriptor

	computePipelines map[forge.PipelineID]forge.ComputePipelineDescriptor
	renderPipelines  map[forge.PipelineID]forge.RenderPipelineDescriptor

	submitted []*CommandBuffer
}

// New creates a device with the default limits.
func New() *Device {
	return NewWithLimits(forge.DefaultLimits())
}

// NewWithLimits creates a device advertising the given limits. Tests use
// small limits to exercise rejection paths.
func NewWithLimits(limits forge.Limits) *Device {
	return &Device{
		limits:           limits,
		buffers:          make(map[forge.BufferID][]byte),
		textures:         make(map[forge.TextureID]forge.TextureDescriptor),
		computePipelines: make(map[forge.PipelineID]forge.ComputePipelineDescriptor),
		renderPipelines:  make(map[forge.PipelineID]forge.RenderPipelineDescriptor),
	}
}

// Name returns "null".
func (d *Device) Name() string { return "null" }

// Limits returns the advertised device limits.
func (d *Device) Limits() forge.Limits { return d.limits }

func (d *Device) issueID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateBuffer allocates zeroed storage of the descriptor's size.
func (d *Device) CreateBuffer(desc *forge.BufferDescriptor) (forge.BufferID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	id := forge.BufferID(d.issueID())
	d.buffers[id] = make([]byte, desc.Size)
	return id, nil
}

// DestroyBuffer releases a buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id forge.BufferID) {
	delete(d.buffers, id)
}

// CreateTexture records the texture descriptor.
func (d *Device) CreateTexture(desc *forge.TextureDescriptor) (forge.TextureID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	id := forge.TextureID(d.issueID())
	d.textures[id] = *desc
	return id, nil
}

// DestroyTexture releases a texture. Unknown IDs are ignored.
func (d *Device) DestroyTexture(id forge.TextureID) {
	delete(d.textures, id)
}

// CreateComputePipeline accepts any descriptor with non-empty shader
// source. An empty shader is the device-level build failure tests rely on.
func (d *Device) CreateComputePipeline(desc *forge.ComputePipelineDescriptor) (forge.PipelineID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	if desc.Shader.WGSL == "" {
		return forge.InvalidID, fmt.Errorf("null: compute pipeline %q: empty shader source", desc.Label)
	}
	id := forge.PipelineID(d.issueID())
	d.computePipelines[id] = *desc
	return id, nil
}

// CreateRenderPipeline accepts any descriptor with non-empty shader source.
func (d *Device) CreateRenderPipeline(desc *forge.RenderPipelineDescriptor) (forge.PipelineID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	if desc.Shader.WGSL == "" {
		return forge.InvalidID, fmt.Errorf("null: render pipeline %q: empty shader source", desc.Label)
	}
	id := forge.PipelineID(d.issueID())
	d.renderPipelines[id] = *desc
	return id, nil
}

// DestroyPipeline releases a pipeline. Unknown IDs are ignored.
func (d *Device) DestroyPipeline(id forge.PipelineID) {
	delete(d.computePipelines, id)
	delete(d.renderPipelines, id)
}

// WriteBuffer copies data into the buffer's storage.
func (d *Device) WriteBuffer(id forge.BufferID, offset uint64, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("write buffer %d: %w", id, ErrUnknownID)
	}
	// Overflow-safe: offset+len(data) may wrap uint64.
	if offset > uint64(len(buf)) || uint64(len(data)) > uint64(len(buf))-offset {
		return fmt.Errorf("write buffer %d: write of %d bytes at offset %d exceeds size %d",
			id, len(data), offset, len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

// WriteTexture accepts texel data for a known texture. The data itself is
// not retained.
func (d *Device) WriteTexture(id forge.TextureID, data []byte, bytesPerRow uint32) error {
	if d.closed {
		return ErrClosed
	}
	if _, ok := d.textures[id]; !ok {
		return fmt.Errorf("write texture %d: %w", id, ErrUnknownID)
	}
	return nil
}

// NewEncoder opens a recording session.
func (d *Device) NewEncoder(label string) (forge.CommandEncoder, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return &encoder{label: label}, nil
}

// Submit retains the command buffer for later inspection.
func (d *Device) Submit(buf forge.CommandBuffer) error {
	if d.closed {
		return ErrClosed
	}
	cb, ok := buf.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("null: submit: foreign command buffer %T", buf)
	}
	d.submitted = append(d.submitted, cb)
	return nil
}

// Close releases everything. Further use returns ErrClosed.
func (d *Device) Close() {
	d.closed = true
	d.buffers = nil
	d.textures = nil
	d.computePipelines = nil
	d.renderPipelines = nil
}

// Inspection surface for tests.

// Submitted returns every command buffer submitted so far, in order.
func (d *Device) Submitted() []*CommandBuffer { return d.submitted }

// BufferData returns the current storage of a buffer, or nil for an
// unknown ID.
func (d *Device) BufferData(id forge.BufferID) []byte { return d.buffers[id] }

// LiveBuffers returns the number of buffers not yet destroyed.
func (d *Device) LiveBuffers() int { return len(d.buffers) }

// LiveTextures returns the number of textures not yet destroyed.
func (d *Device) LiveTextures() int { return len(d.textures) }

// LivePipelines returns the number of pipelines not yet destroyed.
func (d *Device) LivePipelines() int {
	return len(d.computePipelines) + len(d.renderPipelines)
}
