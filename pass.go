package forge

import (
	"fmt"
	"maps"
	"slices"
)

// bindKind discriminates what a bind slot holds.
type bindKind uint8

const (
	bindBuffer bindKind = iota + 1
	bindTexture
)

// slotBinding is a resolved binding recorded for one slot. Handles are
// resolved to device IDs at record time, so a handle destroyed mid-frame
// cannot invalidate an already-recorded pass.
type slotBinding struct {
	kind    bindKind
	buffer  BufferID
	texture TextureID
}

// bindSlot validates and stores one binding. Rebinding an occupied slot is
// last-write-wins unless strict mode is on.
func bindSlot(bindings map[uint32]slotBinding, slot, maxSlots uint32, strict bool, b slotBinding) error {
	if slot >= maxSlots {
		return fmt.Errorf("slot %d: %w: exceeds limit %d", slot, ErrPassContract, maxSlots)
	}
	if _, occupied := bindings[slot]; occupied && strict {
		return fmt.Errorf("slot %d: %w", slot, ErrSlotOccupied)
	}
	bindings[slot] = b
	return nil
}

// emitBindings replays recorded bindings onto the encoder in ascending slot
// order.
func emitBindings(enc CommandEncoder, bindings map[uint32]slotBinding) error {
	for _, slot := range sortedSlots(bindings) {
		b := bindings[slot]
		var err error
		switch b.kind {
		case bindBuffer:
			err = enc.BindBuffer(slot, b.buffer)
		case bindTexture:
			err = enc.BindTexture(slot, b.texture)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func sortedSlots[V any](m map[uint32]V) []uint32 {
	return slices.Sorted(maps.Keys(m))
}
