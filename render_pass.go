package forge

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// RenderPass records the commands of one render pass. A valid recording
// sets a pipeline, binds resources and vertex buffers as needed, and ends
// with exactly one Draw. Validation mirrors ComputePass: handles are
// resolved at record time and violations surface from the offending call.
//
// A RenderPass is only valid inside the Frame.Render closure that created
// it.
type RenderPass struct {
	ctx      *Context
	maxSlots uint32
	strict   bool

	pipeline    PipelineID
	hasPipeline bool
	bindings    map[uint32]slotBinding

	vertexBuffers map[uint32]BufferID

	terminated    bool
	vertexCount   uint32
	instanceCount uint32
}

// SetPipeline binds the render pipeline for the draw. Calling it again
// before Draw replaces the previous choice.
func (p *RenderPass) SetPipeline(h RenderPipelineHandle) error {
	if p.terminated {
		return ErrPassTerminated
	}
	info, err := p.ctx.pipelines.GetRender(h)
	if err != nil {
		return err
	}
	p.pipeline = info.ID
	p.hasPipeline = true
	return nil
}

// BindBuffer binds a buffer to a bind slot. Rebinding an occupied slot is
// last-write-wins, or ErrSlotOccupied under WithStrictBinding.
func (p *RenderPass) BindBuffer(slot uint32, h BufferHandle) error {
	if p.terminated {
		return ErrPassTerminated
	}
	info, err := p.ctx.buffers.Get(h)
	if err != nil {
		return err
	}
	if p.bindings == nil {
		p.bindings = make(map[uint32]slotBinding)
	}
	return bindSlot(p.bindings, slot, p.maxSlots, p.strict, slotBinding{kind: bindBuffer, buffer: info.ID})
}

// BindTexture binds a texture to a bind slot.
func (p *RenderPass) BindTexture(slot uint32, h TextureHandle) error {
	if p.terminated {
		return ErrPassTerminated
	}
	info, err := p.ctx.textures.Get(h)
	if err != nil {
		return err
	}
	if p.bindings == nil {
		p.bindings = make(map[uint32]slotBinding)
	}
	return bindSlot(p.bindings, slot, p.maxSlots, p.strict, slotBinding{kind: bindTexture, texture: info.ID})
}

// SetVertexBuffer binds a buffer as the vertex source for the given vertex
// buffer slot. The buffer must have been created with vertex usage.
// Rebinding follows the same last-write-wins rule as bind slots.
func (p *RenderPass) SetVertexBuffer(slot uint32, h BufferHandle) error {
	if p.terminated {
		return ErrPassTerminated
	}
	info, err := p.ctx.buffers.Get(h)
	if err != nil {
		return err
	}
	if info.Descriptor.Usage&gputypes.BufferUsageVertex == 0 {
		return fmt.Errorf("vertex buffer %v: %w: missing Vertex usage", h, ErrUsageMismatch)
	}
	if slot >= p.maxSlots {
		return fmt.Errorf("vertex slot %d: %w: exceeds limit %d", slot, ErrPassContract, p.maxSlots)
	}
	if p.vertexBuffers == nil {
		p.vertexBuffers = make(map[uint32]BufferID)
	}
	if _, occupied := p.vertexBuffers[slot]; occupied && p.strict {
		return fmt.Errorf("vertex slot %d: %w", slot, ErrSlotOccupied)
	}
	p.vertexBuffers[slot] = info.ID
	return nil
}

// Draw terminates the pass with vertexCount vertices over instanceCount
// instances. A pipeline must be set first, and only one Draw is allowed per
// pass. Zero counts are accepted and encode a draw that does no work.
func (p *RenderPass) Draw(vertexCount, instanceCount uint32) error {
	if p.terminated {
		return ErrPassTerminated
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	p.vertexCount = vertexCount
	p.instanceCount = instanceCount
	p.terminated = true
	return nil
}
