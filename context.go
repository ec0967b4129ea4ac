package forge

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Option configures a Context at construction time.
type Option func(*Context)

// WithStrictBinding makes duplicate slot bindings within a pass an error
// instead of last-write-wins. Useful for catching accidental rebinds during
// development.
func WithStrictBinding() Option {
	return func(c *Context) { c.strictBinding = true }
}

// WithLabel sets a debug label for the context, included in log output.
func WithLabel(label string) Option {
	return func(c *Context) { c.label = label }
}

// Context is the root object of the engine. It owns the device, the
// resource registries, and the pipeline cache, and hands out at most one
// open Frame at a time.
//
// A Context and everything reached through it belong to a single goroutine.
// Cross-goroutine use requires external synchronization.
type Context struct {
	dev   Device
	label string

	strictBinding bool

	buffers   BufferRegistry
	textures  TextureRegistry
	pipelines *PipelineRegistry

	frameOpen bool
	closed    bool
}

// NewContext creates a Context over dev. The device is owned by the context
// from this point: Close releases it.
func NewContext(dev Device, opts ...Option) (*Context, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	c := &Context{dev: dev}
	for _, opt := range opts {
		opt(c)
	}
	c.buffers = BufferRegistry{dev: dev}
	c.textures = TextureRegistry{dev: dev}
	c.pipelines = newPipelineRegistry(dev)

	Logger().Info("context created", "device", dev.Name(), "label", c.label)
	return c, nil
}

// Device returns the underlying device.
func (c *Context) Device() Device { return c.dev }

// Buffers returns the buffer registry.
func (c *Context) Buffers() *BufferRegistry { return &c.buffers }

// Textures returns the texture registry.
func (c *Context) Textures() *TextureRegistry { return &c.textures }

// Pipelines returns the pipeline registry.
func (c *Context) Pipelines() *PipelineRegistry { return c.pipelines }

// BeginFrame opens a new frame for command recording. Only one frame may be
// open at a time; a second call before Submit or Discard returns
// ErrFrameOpen.
func (c *Context) BeginFrame() (*Frame, error) {
	if c.closed {
		return nil, fmt.Errorf("begin frame: %w", ErrContextClosed)
	}
	if c.frameOpen {
		return nil, fmt.Errorf("begin frame: %w", ErrFrameOpen)
	}

	enc, err := c.dev.NewEncoder(c.label)
	if err != nil {
		return nil, fmt.Errorf("begin frame: %w", err)
	}
	c.frameOpen = true
	return &Frame{ctx: c, enc: enc}, nil
}

// UploadBuffer writes data into the buffer at the given byte offset. The
// buffer must have been created with copy-destination usage; the write must
// fit within the buffer.
func (c *Context) UploadBuffer(h BufferHandle, offset uint64, data []byte) error {
	if c.closed {
		return fmt.Errorf("upload buffer: %w", ErrContextClosed)
	}
	info, err := c.buffers.Get(h)
	if err != nil {
		return fmt.Errorf("upload buffer: %w", err)
	}
	if info.Descriptor.Usage&gputypes.BufferUsageCopyDst == 0 {
		return fmt.Errorf("upload buffer %v: %w: missing CopyDst usage", h, ErrUsageMismatch)
	}
	// Overflow-safe bounds check: offset+len(data) may wrap uint64.
	if offset > info.Descriptor.Size || uint64(len(data)) > info.Descriptor.Size-offset {
		return fmt.Errorf("upload buffer %v: write of %d bytes at offset %d exceeds size %d: %w",
			h, len(data), offset, info.Descriptor.Size, ErrAllocation)
	}
	return c.dev.WriteBuffer(info.ID, offset, data)
}

// UploadTexture writes texel data into the texture. The texture must have
// been created with copy-destination usage. bytesPerRow is the stride of
// one row in data; zero means tightly packed.
func (c *Context) UploadTexture(h TextureHandle, data []byte, bytesPerRow uint32) error {
	if c.closed {
		return fmt.Errorf("upload texture: %w", ErrContextClosed)
	}
	info, err := c.textures.Get(h)
	if err != nil {
		return fmt.Errorf("upload texture: %w", err)
	}
	if info.Descriptor.Usage&gputypes.TextureUsageCopyDst == 0 {
		return fmt.Errorf("upload texture %v: %w: missing CopyDst usage", h, ErrUsageMismatch)
	}
	return c.dev.WriteTexture(info.ID, data, bytesPerRow)
}

// Close destroys every live resource and pipeline, then releases the
// device. The context is unusable afterwards; Close is idempotent.
//
// A frame still open at Close time must be submitted or discarded first;
// otherwise Close returns ErrFrameOpen and does nothing.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	if c.frameOpen {
		return fmt.Errorf("close context: %w", ErrFrameOpen)
	}
	c.closed = true

	Logger().Info("context closing",
		"buffers", c.buffers.Len(),
		"textures", c.textures.Len(),
		"pipelines", c.pipelines.Len())

	c.pipelines.destroyAll()
	c.textures.destroyAll()
	c.buffers.destroyAll()
	c.dev.Close()
	return nil
}

// frameClosed is called by Frame when it reaches a terminal state.
func (c *Context) frameClosed() {
	c.frameOpen = false
}
