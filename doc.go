// Package forge provides a GPU command-recording engine for Go.
//
// # Overview
//
// forge turns explicitly ordered GPU work — compute dispatches and render
// draws — into a deterministic, submittable command stream. It owns the
// resource and pipeline registries backing that stream, and delegates all
// actual device work (allocation, shader compilation, submission) to a
// pluggable Device backend from the GoGPU ecosystem.
//
// forge never infers intent: every buffer, texture, pipeline, and pass is
// explicitly created and explicitly ordered by the caller. There is no
// hazard tracking, no pass reordering, and no resource aliasing.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/forge"
//	    "github.com/gogpu/forge/backend"
//	    _ "github.com/gogpu/forge/backend/null"
//	)
//
//	dev, _ := backend.Open("null")
//	ctx, _ := forge.NewContext(dev)
//	defer ctx.Close()
//
//	buf, _ := ctx.Buffers().Create(forge.BufferDescriptor{
//	    Size:  1024,
//	    Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
//	})
//	pipe, _ := ctx.Pipelines().Compute(forge.ComputePipelineDescriptor{
//	    Shader:     shaderSource,
//	    EntryPoint: "main",
//	})
//
//	frame, _ := ctx.BeginFrame()
//	frame.Compute("fill", func(p *forge.ComputePass) error {
//	    p.SetPipeline(pipe)
//	    p.BindBuffer(0, buf)
//	    return p.Dispatch(8, 1, 1)
//	})
//	frame.Submit()
//
// # Architecture
//
// The library is organized into:
//   - Public API: Context, Frame, ComputePass, RenderPass, registries, handles
//   - cache: hash-keyed pipeline store shared by the pipeline registry
//   - backend: device driver registry (database/sql style)
//   - backend/null: in-memory device for headless use and tests
//   - backend/wgpu: hardware device via gogpu/wgpu, shaders via gogpu/naga
//
// # Ordering
//
// Passes execute on the device in exactly the order they were recorded into
// a Frame. Cross-frame ordering is a property of the device queue and is out
// of forge's scope.
//
// # Concurrency
//
// A Context and its Frames assume single-threaded ownership during registry
// mutation and frame recording. Callers needing concurrent access must layer
// their own serialization.
package forge

// Version is the current version of the library.
const Version = "0.1.0"
