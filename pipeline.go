package forge

import (
	"fmt"

	"github.com/gogpu/forge/cache"
)

// PipelineInfo is the registry's record of a built pipeline.
type PipelineInfo struct {
	// ID is the backend identifier for the pipeline.
	ID PipelineID

	// Label is the descriptor label the pipeline was built with.
	Label string
}

// PipelineStats reports cache effectiveness per pipeline kind.
type PipelineStats struct {
	Compute cache.Stats
	Render  cache.Stats
}

// PipelineRegistry builds pipelines on demand and caches them by structural
// descriptor identity: two structurally equal descriptors always resolve to
// the same handle, however many times they are requested. Pipelines live
// until the owning Context closes; there is no eviction.
type PipelineRegistry struct {
	dev Device

	computeArena arena[computePipelineTag, PipelineInfo]
	renderArena  arena[renderPipelineTag, PipelineInfo]

	computeCache *cache.Map[ComputePipelineDescriptor, ComputePipelineHandle]
	renderCache  *cache.Map[RenderPipelineDescriptor, RenderPipelineHandle]
}

func newPipelineRegistry(dev Device) *PipelineRegistry {
	return &PipelineRegistry{
		dev: dev,
		computeCache: cache.NewMap[ComputePipelineDescriptor, ComputePipelineHandle](
			func(d ComputePipelineDescriptor) uint64 { return hashCompute(&d) },
			func(a, b ComputePipelineDescriptor) bool { return equalCompute(&a, &b) },
		),
		renderCache: cache.NewMap[RenderPipelineDescriptor, RenderPipelineHandle](
			func(d RenderPipelineDescriptor) uint64 { return hashRender(&d) },
			func(a, b RenderPipelineDescriptor) bool { return equalRender(&a, &b) },
		),
	}
}

// Compute returns the handle for the pipeline described by desc, building
// it on first request. A build failure surfaces as ErrPipelineBuild and
// leaves the cache unchanged, so a corrected descriptor can be retried.
func (r *PipelineRegistry) Compute(desc ComputePipelineDescriptor) (ComputePipelineHandle, error) {
	h, hit, err := r.computeCache.GetOrCreate(desc.clone(), func() (ComputePipelineHandle, error) {
		id, err := r.dev.CreateComputePipeline(&desc)
		if err != nil {
			return ComputePipelineHandle{}, fmt.Errorf("compute pipeline %q: %w: %w",
				desc.Label, ErrPipelineBuild, err)
		}
		return r.computeArena.insert(PipelineInfo{ID: id, Label: desc.Label}), nil
	})
	if err != nil {
		return ComputePipelineHandle{}, err
	}
	if !hit {
		Logger().Debug("compute pipeline built", "handle", h, "label", desc.Label)
	}
	return h, nil
}

// Render returns the handle for the pipeline described by desc, building it
// on first request. A build failure surfaces as ErrPipelineBuild and leaves
// the cache unchanged.
func (r *PipelineRegistry) Render(desc RenderPipelineDescriptor) (RenderPipelineHandle, error) {
	h, hit, err := r.renderCache.GetOrCreate(desc.clone(), func() (RenderPipelineHandle, error) {
		id, err := r.dev.CreateRenderPipeline(&desc)
		if err != nil {
			return RenderPipelineHandle{}, fmt.Errorf("render pipeline %q: %w: %w",
				desc.Label, ErrPipelineBuild, err)
		}
		return r.renderArena.insert(PipelineInfo{ID: id, Label: desc.Label}), nil
	})
	if err != nil {
		return RenderPipelineHandle{}, err
	}
	if !hit {
		Logger().Debug("render pipeline built", "handle", h, "label", desc.Label)
	}
	return h, nil
}

// GetCompute resolves a compute pipeline handle. A foreign or never-issued
// handle returns ErrInvalidHandle.
func (r *PipelineRegistry) GetCompute(h ComputePipelineHandle) (PipelineInfo, error) {
	info := r.computeArena.get(h)
	if info == nil {
		return PipelineInfo{}, fmt.Errorf("compute pipeline %v: %w", h, ErrInvalidHandle)
	}
	return *info, nil
}

// GetRender resolves a render pipeline handle.
func (r *PipelineRegistry) GetRender(h RenderPipelineHandle) (PipelineInfo, error) {
	info := r.renderArena.get(h)
	if info == nil {
		return PipelineInfo{}, fmt.Errorf("render pipeline %v: %w", h, ErrInvalidHandle)
	}
	return *info, nil
}

// Len returns the number of cached pipelines of both kinds.
func (r *PipelineRegistry) Len() int {
	return r.computeArena.live + r.renderArena.live
}

// Stats returns hit and miss counters for both pipeline caches.
func (r *PipelineRegistry) Stats() PipelineStats {
	return PipelineStats{
		Compute: r.computeCache.Stats(),
		Render:  r.renderCache.Stats(),
	}
}

// destroyAll releases every built pipeline. Used by Context.Close.
func (r *PipelineRegistry) destroyAll() {
	r.computeArena.each(func(info *PipelineInfo) {
		r.dev.DestroyPipeline(info.ID)
	})
	r.renderArena.each(func(info *PipelineInfo) {
		r.dev.DestroyPipeline(info.ID)
	})
	r.computeArena = arena[computePipelineTag, PipelineInfo]{}
	r.renderArena = arena[renderPipelineTag, PipelineInfo]{}
	r.computeCache.Clear()
	r.renderCache.Clear()
}

// clone deep-copies the descriptor so the cache key cannot be mutated
// through slices the caller still holds.
func (d ComputePipelineDescriptor) clone() ComputePipelineDescriptor {
	d.Bindings = append([]BindingLayout(nil), d.Bindings...)
	return d
}

func (d RenderPipelineDescriptor) clone() RenderPipelineDescriptor {
	d.Bindings = append([]BindingLayout(nil), d.Bindings...)
	buffers := make([]VertexBufferLayout, len(d.VertexBuffers))
	for i, vb := range d.VertexBuffers {
		vb.Attributes = append([]VertexAttribute(nil), vb.Attributes...)
		buffers[i] = vb
	}
	d.VertexBuffers = buffers
	return d
}
