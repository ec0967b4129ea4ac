// Package null provides an in-memory device that records command streams
// instead of executing them. It backs headless runs and tests: every
// submitted frame is retained as a typed command slice that can be
// inspected afterwards.
package null

import "github.com/gogpu/forge"

// Command is one recorded encoder operation. Concrete types below mirror
// the encoder surface one to one.
type Command interface {
	isCommand()
}

// BeginComputePass opens a compute pass scope.
type BeginComputePass struct {
	Label string
}

// BeginRenderPass opens a render pass scope.
type BeginRenderPass struct {
	Label  string
	Target forge.TextureID
}

// SetPipeline binds a pipeline.
type SetPipeline struct {
	Pipeline forge.PipelineID
}

// BindBuffer binds a buffer to a slot.
type BindBuffer struct {
	Slot   uint32
	Buffer forge.BufferID
}

// BindTexture binds a texture to a slot.
type BindTexture struct {
	Slot    uint32
	Texture forge.TextureID
}

// SetVertexBuffer binds a vertex buffer to a slot.
type SetVertexBuffer struct {
	Slot   uint32
	Buffer forge.BufferID
}

// Dispatch records a compute dispatch.
type Dispatch struct {
	X, Y, Z uint32
}

// Draw records a draw call.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
}

// EndPass closes the open pass scope.
type EndPass struct{}

func (BeginComputePass) isCommand() {}
func (BeginRenderPass) isCommand()  {}
func (SetPipeline) isCommand()      {}
func (BindBuffer) isCommand()       {}
func (BindTexture) isCommand()      {}
func (SetVertexBuffer) isCommand()  {}
func (Dispatch) isCommand()         {}
func (Draw) isCommand()             {}
func (EndPass) isCommand()          {}

// CommandBuffer is a finalized recorded stream.
type CommandBuffer struct {
	label    string
	commands []Command
}

// Label returns the debug label the stream was encoded under.
func (b *CommandBuffer) Label() string { return b.label }

// Commands returns the recorded stream in encoding order.
func (b *CommandBuffer) Commands() []Command { return b.commands }
