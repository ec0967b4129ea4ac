package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/forge"
)

// Encoder errors.
var (
	// ErrEncoderDone is returned for commands after Finish or Discard.
	ErrEncoderDone = errors.New("wgpu: encoder already finished")

	// ErrNoOpenPass is returned for pass-scoped commands outside a pass.
	ErrNoOpenPass = errors.New("wgpu: no open pass")

	// ErrPassOpen is returned when a pass begins inside another pass, or
	// the encoder finishes with a pass still open.
	ErrPassOpen = errors.New("wgpu: pass still open")

	// ErrTextureBinding is returned for texture bindings in a compute
	// pass; the driver only materializes buffer bind groups so far.
	// TODO: wire texture views into bind group entries once hal exposes
	// view handles for binding.
	ErrTextureBinding = errors.New("wgpu: texture bindings not supported in compute passes")
)

type passKind uint8

const (
	passNone passKind = iota
	passCompute
	passRender
)

type slotBind struct {
	slot   uint32
	buffer hal.Buffer
}

// encoder collects one pass at a time and encodes it onto the hal encoder
// when the pass ends. The engine above it guarantees well-formed sequences,
// so per-pass state is minimal.
type encoder struct {
	dev   *Device
	label string
	enc   hal.CommandEncoder

	bindGroups []hal.BindGroup
	done       bool

	kind      passKind
	passLabel string
	pipeline  forge.PipelineID
	bindings  []slotBind
	groups    [3]uint32
}

func (e *encoder) BeginComputePass(label string) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind != passNone {
		return ErrPassOpen
	}
	e.kind = passCompute
	e.passLabel = label
	e.bindings = e.bindings[:0]
	return nil
}

func (e *encoder) BeginRenderPass(label string, target forge.TextureID) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind != passNone {
		return ErrPassOpen
	}
	// hal render encoding is not available; the pass is accepted and
	// dropped. See Device.CreateRenderPipeline.
	e.kind = passRender
	e.passLabel = label
	return nil
}

func (e *encoder) SetPipeline(id forge.PipelineID) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind == passNone {
		return ErrNoOpenPass
	}
	e.pipeline = id
	return nil
}

func (e *encoder) BindBuffer(slot uint32, id forge.BufferID) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind == passNone {
		return ErrNoOpenPass
	}
	if e.kind == passRender {
		return nil
	}
	buf, ok := e.dev.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: bind buffer %d: %w", id, ErrUnknownID)
	}
	e.bindings = append(e.bindings, slotBind{slot: slot, buffer: buf})
	return nil
}

func (e *encoder) BindTexture(slot uint32, id forge.TextureID) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind == passNone {
		return ErrNoOpenPass
	}
	if e.kind == passRender {
		return nil
	}
	return ErrTextureBinding
}

func (e *encoder) SetVertexBuffer(slot uint32, id forge.BufferID) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind != passRender {
		return ErrNoOpenPass
	}
	return nil
}

func (e *encoder) Dispatch(x, y, z uint32) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind != passCompute {
		return ErrNoOpenPass
	}
	e.groups = [3]uint32{x, y, z}
	return nil
}

func (e *encoder) Draw(vertexCount, instanceCount uint32) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.kind != passRender {
		return ErrNoOpenPass
	}
	return nil
}

func (e *encoder) EndPass() error {
	if e.done {
		return ErrEncoderDone
	}
	switch e.kind {
	case passNone:
		return ErrNoOpenPass
	case passRender:
		e.kind = passNone
		return nil
	}
	err := e.encodeComputePass()
	e.kind = passNone
	return err
}

// encodeComputePass materializes the collected pass onto the hal encoder:
// bind group first, then the pass scope with pipeline, bindings, and the
// dispatch.
func (e *encoder) encodeComputePass() error {
	entry, ok := e.dev.pipelines[e.pipeline]
	if !ok || entry.compute == nil {
		return fmt.Errorf("wgpu: pass %q: pipeline %d: %w", e.passLabel, e.pipeline, ErrUnknownID)
	}

	var bg hal.BindGroup
	if len(e.bindings) > 0 {
		entries := make([]gputypes.BindGroupEntry, 0, len(e.bindings))
		for _, b := range e.bindings {
			entries = append(entries, gputypes.BindGroupEntry{
				Binding: b.slot,
				Resource: gputypes.BufferBinding{
					Buffer: b.buffer.NativeHandle(),
					Offset: 0,
					Size:   0, // 0 = entire buffer
				},
			})
		}
		var err error
		bg, err = e.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   e.passLabel,
			Layout:  entry.bindLayout,
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("wgpu: pass %q: create bind group: %w", e.passLabel, err)
		}
		e.bindGroups = append(e.bindGroups, bg)
	}

	pass := e.enc.BeginComputePass(&hal.ComputePassDescriptor{Label: e.passLabel})
	pass.SetPipeline(entry.compute)
	if bg != nil {
		pass.SetBindGroup(0, bg, nil)
	}
	pass.Dispatch(e.groups[0], e.groups[1], e.groups[2])
	pass.End()
	return nil
}

func (e *encoder) Finish() (forge.CommandBuffer, error) {
	if e.done {
		return nil, ErrEncoderDone
	}
	if e.kind != passNone {
		return nil, ErrPassOpen
	}
	e.done = true

	halBuf, err := e.enc.EndEncoding()
	if err != nil {
		for _, bg := range e.bindGroups {
			e.dev.device.DestroyBindGroup(bg)
		}
		e.bindGroups = nil
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	return &commandBuffer{label: e.label, halBuf: halBuf, bindGroups: e.bindGroups}, nil
}

func (e *encoder) Discard() {
	if e.done {
		return
	}
	e.done = true
	e.enc.DiscardEncoding()
	for _, bg := range e.bindGroups {
		e.dev.device.DestroyBindGroup(bg)
	}
	e.bindGroups = nil
}

// commandBuffer pairs the finalized hal stream with the bind groups whose
// lifetime must outlast submission.
type commandBuffer struct {
	label      string
	halBuf     hal.CommandBuffer
	bindGroups []hal.BindGroup
}

// Label returns the debug label the stream was encoded under.
func (b *commandBuffer) Label() string { return b.label }
