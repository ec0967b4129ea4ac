package null

import (
	"errors"

	"github.com/gogpu/forge"
)

// Encoder errors.
var (
	// ErrEncoderDone is returned for commands after Finish or Discard.
	ErrEncoderDone = errors.New("null: encoder already finished")

	// ErrNoOpenPass is returned for pass-scoped commands outside a pass.
	ErrNoOpenPass = errors.New("null: no open pass")

	// ErrPassOpen is returned when a pass begins inside another pass, or
	// the encoder finishes with a pass still open.
	ErrPassOpen = errors.New("null: pass still open")
)

// encoder records commands into a flat stream. It keeps just enough state
// to reject sequences the engine should never produce.
type encoder struct {
	label    string
	commands []Command
	inPass   bool
	done     bool
}

func (e *encoder) record(c Command) error {
	if e.done {
		return ErrEncoderDone
	}
	e.commands = append(e.commands, c)
	return nil
}

func (e *encoder) beginPass(c Command) error {
	if e.done {
		return ErrEncoderDone
	}
	if e.inPass {
		return ErrPassOpen
	}
	e.inPass = true
	return e.record(c)
}

func (e *encoder) inPassCommand(c Command) error {
	if e.done {
		return ErrEncoderDone
	}
	if !e.inPass {
		return ErrNoOpenPass
	}
	return e.record(c)
}

func (e *encoder) BeginComputePass(label string) error {
	return e.beginPass(BeginComputePass{Label: label})
}

func (e *encoder) BeginRenderPass(label string, target forge.TextureID) error {
	return e.beginPass(BeginRenderPass{Label: label, Target: target})
}

func (e *encoder) SetPipeline(id forge.PipelineID) error {
	return e.inPassCommand(SetPipeline{Pipeline: id})
}

func (e *encoder) BindBuffer(slot uint32, id forge.BufferID) error {
	return e.inPassCommand(BindBuffer{Slot: slot, Buffer: id})
}

func (e *encoder) BindTexture(slot uint32, id forge.TextureID) error {
	return e.inPassCommand(BindTexture{Slot: slot, Texture: id})
}

func (e *encoder) SetVertexBuffer(slot uint32, id forge.BufferID) error {
	return e.inPassCommand(SetVertexBuffer{Slot: slot, Buffer: id})
}

func (e *encoder) Dispatch(x, y, z uint32) error {
	return e.inPassCommand(Dispatch{X: x, Y: y, Z: z})
}

func (e *encoder) Draw(vertexCount, instanceCount uint32) error {
	return e.inPassCommand(Draw{VertexCount: vertexCount, InstanceCount: instanceCount})
}

func (e *encoder) EndPass() error {
	if err := e.inPassCommand(EndPass{}); err != nil {
		return err
	}
	e.inPass = false
	return nil
}

func (e *encoder) Finish() (forge.CommandBuffer, error) {
	if e.done {
		return nil, ErrEncoderDone
	}
	if e.inPass {
		return nil, ErrPassOpen
	}
	e.done = true
	return &CommandBuffer{label: e.label, commands: e.commands}, nil
}

func (e *encoder) Discard() {
	e.done = true
	e.commands = nil
}
