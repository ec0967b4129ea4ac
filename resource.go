package forge

import "fmt"

// arena is a generational slot store. Slots are reused after destruction
// with a bumped generation, so a handle issued for a destroyed object can
// never alias the object that later occupies the same slot.
//
// An arena is owned by a single Context and follows its single-owner
// threading contract; it performs no locking of its own.
type arena[Tag any, V any] struct {
	slots []arenaSlot[V]
	free  []uint32
	live  int
}

type arenaSlot[V any] struct {
	generation uint32
	occupied   bool
	value      V
}

// insert stores v and returns a fresh handle for it.
func (a *arena[Tag, V]) insert(v V) Handle[Tag] {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.occupied = true
		s.value = v
		a.live++
		return Handle[Tag]{index: idx, generation: s.generation}
	}
	a.slots = append(a.slots, arenaSlot[V]{generation: 1, occupied: true, value: v})
	a.live++
	return Handle[Tag]{index: uint32(len(a.slots) - 1), generation: 1}
}

// get returns the value for h, or nil if h is stale, foreign, or was never
// issued.
func (a *arena[Tag, V]) get(h Handle[Tag]) *V {
	if int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return nil
	}
	return &s.value
}

// remove frees h's slot and bumps its generation. It reports whether h was
// live.
func (a *arena[Tag, V]) remove(h Handle[Tag]) (V, bool) {
	var zero V
	if int(h.index) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.index]
	if !s.occupied || s.generation != h.generation {
		return zero, false
	}
	v := s.value
	s.occupied = false
	s.value = zero
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	a.free = append(a.free, h.index)
	a.live--
	return v, true
}

// each calls fn for every live value.
func (a *arena[Tag, V]) each(fn func(*V)) {
	for i := range a.slots {
		if a.slots[i].occupied {
			fn(&a.slots[i].value)
		}
	}
}

// =============================================================================
// Buffers
// =============================================================================

// BufferInfo is the registry's record of a live buffer.
type BufferInfo struct {
	// ID is the backend identifier for the buffer.
	ID BufferID

	// Descriptor is the descriptor the buffer was created with.
	Descriptor BufferDescriptor
}

// BufferRegistry creates, resolves, and destroys buffers on behalf of a
// Context. Descriptors are validated against the device limits before the
// device sees them.
type BufferRegistry struct {
	dev   Device
	arena arena[bufferTag, BufferInfo]
}

// Create validates desc, allocates the buffer on the device, and returns a
// handle for it. Rejections surface as ErrAllocation.
func (r *BufferRegistry) Create(desc BufferDescriptor) (BufferHandle, error) {
	limits := r.dev.Limits()
	if desc.Size == 0 {
		return BufferHandle{}, fmt.Errorf("create buffer %q: %w: zero size", desc.Label, ErrAllocation)
	}
	if desc.Size > limits.MaxBufferSize {
		return BufferHandle{}, fmt.Errorf("create buffer %q: %w: size %d exceeds limit %d",
			desc.Label, ErrAllocation, desc.Size, limits.MaxBufferSize)
	}
	if desc.Usage == 0 {
		return BufferHandle{}, fmt.Errorf("create buffer %q: %w: empty usage", desc.Label, ErrAllocation)
	}

	id, err := r.dev.CreateBuffer(&desc)
	if err != nil {
		return BufferHandle{}, fmt.Errorf("create buffer %q: %w: %w", desc.Label, ErrAllocation, err)
	}

	h := r.arena.insert(BufferInfo{ID: id, Descriptor: desc})
	Logger().Debug("buffer created", "handle", h, "size", desc.Size, "label", desc.Label)
	return h, nil
}

// Get resolves h to the live buffer record. A stale or foreign handle
// returns ErrInvalidHandle.
func (r *BufferRegistry) Get(h BufferHandle) (BufferInfo, error) {
	info := r.arena.get(h)
	if info == nil {
		return BufferInfo{}, fmt.Errorf("buffer %v: %w", h, ErrInvalidHandle)
	}
	return *info, nil
}

// Destroy releases the buffer and invalidates every copy of h. Destroying
// an already-destroyed handle returns ErrInvalidHandle.
func (r *BufferRegistry) Destroy(h BufferHandle) error {
	info, ok := r.arena.remove(h)
	if !ok {
		return fmt.Errorf("destroy buffer %v: %w", h, ErrInvalidHandle)
	}
	r.dev.DestroyBuffer(info.ID)
	Logger().Debug("buffer destroyed", "handle", h)
	return nil
}

// Len returns the number of live buffers.
func (r *BufferRegistry) Len() int { return r.arena.live }

// destroyAll releases every live buffer. Used by Context.Close.
func (r *BufferRegistry) destroyAll() {
	r.arena.each(func(info *BufferInfo) {
		r.dev.DestroyBuffer(info.ID)
	})
	r.arena.slots = nil
	r.arena.free = nil
	r.arena.live = 0
}

// =============================================================================
// Textures
// =============================================================================

// TextureInfo is the registry's record of a live texture.
type TextureInfo struct {
	// ID is the backend identifier for the texture.
	ID TextureID

	// Descriptor is the normalized descriptor the texture was created
	// with (defaults applied).
	Descriptor TextureDescriptor
}

// TextureRegistry creates, resolves, and destroys textures on behalf of a
// Context.
type TextureRegistry struct {
	dev   Device
	arena arena[textureTag, TextureInfo]
}

// Create validates desc, allocates the texture on the device, and returns a
// handle for it. Rejections surface as ErrAllocation.
func (r *TextureRegistry) Create(desc TextureDescriptor) (TextureHandle, error) {
	if desc.Size.DepthOrArrayLayers == 0 {
		desc.Size.DepthOrArrayLayers = 1
	}
	if desc.MipLevelCount == 0 {
		desc.MipLevelCount = 1
	}
	if desc.SampleCount == 0 {
		desc.SampleCount = 1
	}
	limits := r.dev.Limits()
	if desc.Size.Width == 0 || desc.Size.Height == 0 {
		return TextureHandle{}, fmt.Errorf("create texture %q: %w: zero extent", desc.Label, ErrAllocation)
	}
	if desc.Size.Width > limits.MaxTextureDimension2D || desc.Size.Height > limits.MaxTextureDimension2D {
		return TextureHandle{}, fmt.Errorf("create texture %q: %w: extent %dx%d exceeds limit %d",
			desc.Label, ErrAllocation, desc.Size.Width, desc.Size.Height, limits.MaxTextureDimension2D)
	}
	if desc.Usage == 0 {
		return TextureHandle{}, fmt.Errorf("create texture %q: %w: empty usage", desc.Label, ErrAllocation)
	}

	id, err := r.dev.CreateTexture(&desc)
	if err != nil {
		return TextureHandle{}, fmt.Errorf("create texture %q: %w: %w", desc.Label, ErrAllocation, err)
	}

	h := r.arena.insert(TextureInfo{ID: id, Descriptor: desc})
	Logger().Debug("texture created", "handle", h,
		"width", desc.Size.Width, "height", desc.Size.Height, "label", desc.Label)
	return h, nil
}

// Get resolves h to the live texture record. A stale or foreign handle
// returns ErrInvalidHandle.
func (r *TextureRegistry) Get(h TextureHandle) (TextureInfo, error) {
	info := r.arena.get(h)
	if info == nil {
		return TextureInfo{}, fmt.Errorf("texture %v: %w", h, ErrInvalidHandle)
	}
	return *info, nil
}

// Destroy releases the texture and invalidates every copy of h.
func (r *TextureRegistry) Destroy(h TextureHandle) error {
	info, ok := r.arena.remove(h)
	if !ok {
		return fmt.Errorf("destroy texture %v: %w", h, ErrInvalidHandle)
	}
	r.dev.DestroyTexture(info.ID)
	Logger().Debug("texture destroyed", "handle", h)
	return nil
}

// Len returns the number of live textures.
func (r *TextureRegistry) Len() int { return r.arena.live }

func (r *TextureRegistry) destroyAll() {
	r.arena.each(func(info *TextureInfo) {
		r.dev.DestroyTexture(info.ID)
	})
	r.arena.slots = nil
	r.arena.free = nil
	r.arena.live = 0
}
