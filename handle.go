package forge

import "fmt"

// Phantom tag types. They exist only to make handles of different resource
// kinds distinct at compile time; a BufferHandle cannot be passed where a
// TextureHandle is expected.
type (
	bufferTag          struct{}
	textureTag         struct{}
	computePipelineTag struct{}
	renderPipelineTag  struct{}
)

// Handle is an opaque, copyable identifier referencing an object owned by a
// registry. It pairs a dense slot index with a generation counter: a handle
// is valid only for the generation at which it was issued. Destroying the
// object bumps the slot's generation, so every existing copy of the handle
// becomes detectably stale instead of silently aliasing a later resource.
//
// The zero value is always invalid (registries issue generations starting
// at 1).
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// BufferHandle references a buffer in the buffer registry.
type BufferHandle = Handle[bufferTag]

// TextureHandle references a texture in the texture registry.
type TextureHandle = Handle[textureTag]

// ComputePipelineHandle references a cached compute pipeline.
type ComputePipelineHandle = Handle[computePipelineTag]

// RenderPipelineHandle references a cached render pipeline.
type RenderPipelineHandle = Handle[renderPipelineTag]

// IsValid reports whether the handle was ever issued by a registry.
// It does not check whether the referenced object is still alive; use the
// registry's Get for that.
func (h Handle[T]) IsValid() bool {
	return h.generation != 0
}

// Index returns the handle's dense slot index.
func (h Handle[T]) Index() uint32 { return h.index }

// Generation returns the handle's generation counter.
func (h Handle[T]) Generation() uint32 { return h.generation }

// String returns a debug representation like "h3@2".
func (h Handle[T]) String() string {
	if !h.IsValid() {
		return "h(invalid)"
	}
	return fmt.Sprintf("h%d@%d", h.index, h.generation)
}
