package forge

import "fmt"

// ComputePass records the commands of one compute pass. A valid recording
// sets a pipeline, binds whatever the pipeline's layout needs, and ends
// with exactly one Dispatch. The recorder validates every call immediately:
// handles are resolved at record time and contract violations surface from
// the offending call, not at submission.
//
// A ComputePass is only valid inside the Frame.Compute closure that created
// it.
type ComputePass struct {
	ctx      *Context
	maxSlots uint32
	strict   bool

	pipeline    PipelineID
	hasPipeline bool
	bindings    map[uint32]slotBinding

	terminated bool
	groups     [3]uint32
}

// SetPipeline binds the compute pipeline for the dispatch. Calling it again
// before Dispatch replaces the previous choice.
func (p *ComputePass) SetPipeline(h ComputePipelineHandle) error {
	if p.terminated {
		return ErrPassTerminated
	}
	info, err := p.ctx.pipelines.GetCompute(h)
	if err != nil {
		return err
	}
	p.pipeline = info.ID
	p.hasPipeline = true
	return nil
}

// BindBuffer binds a buffer to a bind slot. Rebinding an occupied slot is
// last-write-wins, or ErrSlotOccupied under WithStrictBinding.
func (p *ComputePass) BindBuffer(slot uint32, h BufferHandle) error {
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
func (p *ComputePass) BindTexture(slot uint32, h TextureHandle) error {
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

// Dispatch terminates the pass with x*y*z workgroups. A pipeline must be
// set first, and only one Dispatch is allowed per pass. Zero counts are
// accepted and encode a dispatch that does no work.
func (p *ComputePass) Dispatch(x, y, z uint32) error {
	if p.terminated {
		return ErrPassTerminated
	}
	if !p.hasPipeline {
		return ErrNoPipeline
	}
	limit := p.ctx.dev.Limits().MaxComputeWorkgroupsPerDimension
	if x > limit || y > limit || z > limit {
		return fmt.Errorf("%w: workgroup count (%d, %d, %d) exceeds limit %d",
			ErrPassContract, x, y, z, limit)
	}
	p.groups = [3]uint32{x, y, z}
	p.terminated = true
	return nil
}
