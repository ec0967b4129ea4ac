package forge

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// FrameState tracks a frame through its lifecycle.
type FrameState uint8

// Frame states.
const (
	// FrameOpen accepts pass recording and ends with Submit or Discard.
	FrameOpen FrameState = iota

	// FrameSubmitted means the frame's commands were handed to the device.
	FrameSubmitted

	// FrameDiscarded means the frame was abandoned without submission.
	FrameDiscarded
)

// String returns a human-readable state name.
func (s FrameState) String() string {
	switch s {
	case FrameOpen:
		return "Open"
	case FrameSubmitted:
		return "Submitted"
	case FrameDiscarded:
		return "Discarded"
	default:
		return fmt.Sprintf("FrameState(%d)", uint8(s))
	}
}

// Frame is one unit of command recording. Passes are recorded in call order
// and the whole frame is submitted exactly once; after Submit or Discard
// every further operation returns ErrUseAfterSubmit.
//
// A failed pass contributes nothing to the frame: its commands reach the
// encoder only after the recorder ran to completion, so the frame stays
// open and usable after a pass error.
type Frame struct {
	ctx    *Context
	enc    CommandEncoder
	state  FrameState
	passes int
}

// State returns the frame's current lifecycle state.
func (f *Frame) State() FrameState { return f.state }

// Passes returns the number of passes recorded so far.
func (f *Frame) Passes() int { return f.passes }

// Compute records one compute pass. fn receives a recorder scoped to the
// pass; the pass is encoded only if fn returns nil and the recording
// contract was honored (a pipeline was set and exactly one Dispatch
// issued).
func (f *Frame) Compute(label string, fn func(*ComputePass) error) error {
	if f.state != FrameOpen {
		return fmt.Errorf("compute pass %q: %w", label, ErrUseAfterSubmit)
	}

	pass := &ComputePass{
		ctx:      f.ctx,
		maxSlots: f.ctx.dev.Limits().MaxBindSlots,
		strict:   f.ctx.strictBinding,
	}
	if err := fn(pass); err != nil {
		return fmt.Errorf("compute pass %q: %w", label, err)
	}
	if !pass.terminated {
		return fmt.Errorf("compute pass %q: %w: missing dispatch", label, ErrPassContract)
	}

	if err := f.encodeCompute(label, pass); err != nil {
		f.invalidate()
		return fmt.Errorf("compute pass %q: %w", label, err)
	}
	f.passes++
	return nil
}

// Render records one render pass targeting the given texture. The target
// must be live and created with render-attachment usage. fn receives a
// recorder scoped to the pass; the pass is encoded only if fn returns nil
// and the recording contract was honored (a pipeline was set and exactly
// one Draw issued).
func (f *Frame) Render(target TextureHandle, label string, fn func(*RenderPass) error) error {
	if f.state != FrameOpen {
		return fmt.Errorf("render pass %q: %w", label, ErrUseAfterSubmit)
	}

	info, err := f.ctx.textures.Get(target)
	if err != nil {
		return fmt.Errorf("render pass %q: target: %w", label, err)
	}
	if info.Descriptor.Usage&gputypes.TextureUsageRenderAttachment == 0 {
		return fmt.Errorf("render pass %q: target %v: %w: missing RenderAttachment usage",
			label, target, ErrUsageMismatch)
	}

	pass := &RenderPass{
		ctx:      f.ctx,
		maxSlots: f.ctx.dev.Limits().MaxBindSlots,
		strict:   f.ctx.strictBinding,
	}
	if err := fn(pass); err != nil {
		return fmt.Errorf("render pass %q: %w", label, err)
	}
	if !pass.terminated {
		return fmt.Errorf("render pass %q: %w: missing draw", label, ErrPassContract)
	}

	if err := f.encodeRender(label, info.ID, pass); err != nil {
		f.invalidate()
		return fmt.Errorf("render pass %q: %w", label, err)
	}
	f.passes++
	return nil
}

// Submit finalizes the frame and hands its command stream to the device.
// The frame is consumed whether or not submission succeeds.
func (f *Frame) Submit() error {
	if f.state != FrameOpen {
		return fmt.Errorf("submit frame: %w", ErrUseAfterSubmit)
	}
	f.state = FrameSubmitted
	f.ctx.frameClosed()

	buf, err := f.enc.Finish()
	if err != nil {
		f.enc.Discard()
		return fmt.Errorf("submit frame: %w", err)
	}
	if err := f.ctx.dev.Submit(buf); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	Logger().Debug("frame submitted", "passes", f.passes)
	return nil
}

// Discard abandons the frame without submitting. Discarding an already
// terminated frame returns ErrUseAfterSubmit.
func (f *Frame) Discard() error {
	if f.state != FrameOpen {
		return fmt.Errorf("discard frame: %w", ErrUseAfterSubmit)
	}
	f.invalidate()
	Logger().Debug("frame discarded", "passes", f.passes)
	return nil
}

// invalidate moves the frame to the discarded state and releases the
// encoder session. Used by Discard and when the device rejects an encoded
// pass.
func (f *Frame) invalidate() {
	f.state = FrameDiscarded
	f.ctx.frameClosed()
	f.enc.Discard()
}

// encodeCompute replays a validated recorder onto the encoder. Bindings are
// emitted in ascending slot order so identical recordings always produce
// identical streams.
func (f *Frame) encodeCompute(label string, pass *ComputePass) error {
	if err := f.enc.BeginComputePass(label); err != nil {
		return err
	}
	if err := f.enc.SetPipeline(pass.pipeline); err != nil {
		return err
	}
	if err := emitBindings(f.enc, pass.bindings); err != nil {
		return err
	}
	if err := f.enc.Dispatch(pass.groups[0], pass.groups[1], pass.groups[2]); err != nil {
		return err
	}
	return f.enc.EndPass()
}

func (f *Frame) encodeRender(label string, target TextureID, pass *RenderPass) error {
	if err := f.enc.BeginRenderPass(label, target); err != nil {
		return err
	}
	if err := f.enc.SetPipeline(pass.pipeline); err != nil {
		return err
	}
	if err := emitBindings(f.enc, pass.bindings); err != nil {
		return err
	}
	for _, vb := range sortedSlots(pass.vertexBuffers) {
		if err := f.enc.SetVertexBuffer(vb, pass.vertexBuffers[vb]); err != nil {
			return err
		}
	}
	if err := f.enc.Draw(pass.vertexCount, pass.instanceCount); err != nil {
		return err
	}
	return f.enc.EndPass()
}
