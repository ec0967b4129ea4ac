package forge

import (
	"errors"
	"fmt"
	"strings"
)

// testDevice is an in-memory Device used by the package tests. It issues
// sequential IDs, tracks live objects, and records every encoded command as
// a printable string so tests can assert exact stream order.
type testDevice struct {
	limits Limits

	nextID uint64

	buffers   map[BufferID][]byte
	textures  map[TextureID]bool
	pipelines map[PipelineID]bool

	failComputeBuild error
	failRenderBuild  error
	failSubmit       error
	failFinish       error
	failEncodeOn     string

	lastEncoder *testEncoder
	submitted   [][]string
	closed      bool
}

func newTestDevice() *testDevice {
	return &testDevice{
		limits:    DefaultLimits(),
		buffers:   make(map[BufferID][]byte),
		textures:  make(map[TextureID]bool),
		pipelines: make(map[PipelineID]bool),
	}
}

func (d *testDevice) Name() string   { return "test" }
func (d *testDevice) Limits() Limits { return d.limits }

func (d *testDevice) issueID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *testDevice) CreateBuffer(desc *BufferDescriptor) (BufferID, error) {
	id := BufferID(d.issueID())
	d.buffers[id] = make([]byte, desc.Size)
	return id, nil
}

func (d *testDevice) DestroyBuffer(id BufferID) { delete(d.buffers, id) }

func (d *testDevice) CreateTexture(desc *TextureDescriptor) (TextureID, error) {
	id := TextureID(d.issueID())
	d.textures[id] = true
	return id, nil
}

func (d *testDevice) DestroyTexture(id TextureID) { delete(d.textures, id) }

func (d *testDevice) CreateComputePipeline(desc *ComputePipelineDescriptor) (PipelineID, error) {
	if d.failComputeBuild != nil {
		return InvalidID, d.failComputeBuild
	}
	id := PipelineID(d.issueID())
	d.pipelines[id] = true
	return id, nil
}

func (d *testDevice) CreateRenderPipeline(desc *RenderPipelineDescriptor) (PipelineID, error) {
	if d.failRenderBuild != nil {
		return InvalidID, d.failRenderBuild
	}
	id := PipelineID(d.issueID())
	d.pipelines[id] = true
	return id, nil
}

func (d *testDevice) DestroyPipeline(id PipelineID) { delete(d.pipelines, id) }

func (d *testDevice) WriteBuffer(id BufferID, offset uint64, data []byte) error {
	buf, ok := d.buffers[id]
	if !ok {
		return errors.New("test: unknown buffer")
	}
	if offset > uint64(len(buf)) || uint64(len(data)) > uint64(len(buf))-offset {
		return errors.New("test: write out of range")
	}
	copy(buf[offset:], data)
	return nil
}

func (d *testDevice) WriteTexture(id TextureID, data []byte, bytesPerRow uint32) error {
	if !d.textures[id] {
		return errors.New("test: unknown texture")
	}
	return nil
}

func (d *testDevice) NewEncoder(label string) (CommandEncoder, error) {
	e := &testEncoder{dev: d, label: label, failOn: d.failEncodeOn, failFinish: d.failFinish}
	d.lastEncoder = e
	return e, nil
}

func (d *testDevice) Submit(buf CommandBuffer) error {
	if d.failSubmit != nil {
		return d.failSubmit
	}
	cb := buf.(*testCommandBuffer)
	d.submitted = append(d.submitted, cb.commands)
	return nil
}

func (d *testDevice) Close() { d.closed = true }

type testCommandBuffer struct {
	label    string
	commands []string
}

func (b *testCommandBuffer) Label() string { return b.label }

// testEncoder renders every command to a canonical string.
type testEncoder struct {
	dev       *testDevice
	label     string
	commands  []string
	discarded bool
	finished  bool

	failOn     string // command name that should error, e.g. "dispatch"
	failFinish error
}

func (e *testEncoder) record(s string) error {
	if e.failOn != "" && strings.HasPrefix(s, e.failOn) {
		return fmt.Errorf("test: forced failure on %s", e.failOn)
	}
	e.commands = append(e.commands, s)
	return nil
}

func (e *testEncoder) BeginComputePass(label string) error {
	return e.record("begin-compute " + label)
}

func (e *testEncoder) BeginRenderPass(label string, target TextureID) error {
	return e.record(fmt.Sprintf("begin-render %s tex=%d", label, target))
}

func (e *testEncoder) SetPipeline(id PipelineID) error {
	return e.record(fmt.Sprintf("set-pipeline %d", id))
}

func (e *testEncoder) BindBuffer(slot uint32, id BufferID) error {
	return e.record(fmt.Sprintf("bind-buffer slot=%d buf=%d", slot, id))
}

func (e *testEncoder) BindTexture(slot uint32, id TextureID) error {
	return e.record(fmt.Sprintf("bind-texture slot=%d tex=%d", slot, id))
}

func (e *testEncoder) SetVertexBuffer(slot uint32, id BufferID) error {
	return e.record(fmt.Sprintf("set-vertex-buffer slot=%d buf=%d", slot, id))
}

func (e *testEncoder) Dispatch(x, y, z uint32) error {
	return e.record(fmt.Sprintf("dispatch %d %d %d", x, y, z))
}

func (e *testEncoder) Draw(vertexCount, instanceCount uint32) error {
	return e.record(fmt.Sprintf("draw verts=%d instances=%d", vertexCount, instanceCount))
}

func (e *testEncoder) EndPass() error {
	return e.record("end-pass")
}

func (e *testEncoder) Finish() (CommandBuffer, error) {
	if e.failFinish != nil {
		return nil, e.failFinish
	}
	e.finished = true
	return &testCommandBuffer{label: e.label, commands: e.commands}, nil
}

func (e *testEncoder) Discard() {
	e.discarded = true
	e.commands = nil
}

// newTestContext builds a Context over a fresh testDevice.
func newTestContext(t interface{ Fatalf(string, ...any) }, opts ...Option) (*Context, *testDevice) {
	dev := newTestDevice()
	ctx, err := NewContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx, dev
}
