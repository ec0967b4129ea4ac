package forge

import (
	"errors"
	"fmt"
)

// Engine errors. All errors are local, synchronous, and recoverable by the
// caller: forge never retries internally and never repairs malformed input.
// Match with errors.Is; contextual detail is added via fmt.Errorf wrapping.
var (
	// ErrAllocation is returned when the device rejects a resource
	// descriptor, or the descriptor violates the device limits.
	ErrAllocation = errors.New("forge: resource allocation rejected")

	// ErrInvalidHandle is returned when a stale, foreign, or out-of-range
	// handle is passed to a registry lookup or a pass bind call.
	ErrInvalidHandle = errors.New("forge: invalid handle")

	// ErrPipelineBuild is returned when pipeline compilation fails
	// (malformed shader, missing entry point, incompatible bind layout).
	// The pipeline cache is left untouched.
	ErrPipelineBuild = errors.New("forge: pipeline build failed")

	// ErrUseAfterSubmit is returned for any operation on a Frame after it
	// has been submitted or discarded.
	ErrUseAfterSubmit = errors.New("forge: frame already submitted")

	// ErrFrameOpen is returned by BeginFrame while a prior frame from the
	// same Context has not been submitted or discarded.
	ErrFrameOpen = errors.New("forge: a frame is already open")

	// ErrPassContract is returned for pass recording contract violations:
	// a terminator without a bound pipeline, a second terminator, or a
	// duplicate slot binding in strict mode.
	ErrPassContract = errors.New("forge: pass contract violation")

	// ErrContextClosed is returned for operations on a closed Context.
	ErrContextClosed = errors.New("forge: context is closed")

	// ErrNilDevice is returned when creating a Context without a device.
	ErrNilDevice = errors.New("forge: device is nil")

	// ErrQuit signals a clean stop from an App callback. Run treats it as
	// success and returns nil.
	ErrQuit = errors.New("forge: quit requested")
)

// Fine-grained sentinels wrapping the taxonomy above. They let callers and
// tests pin down the exact violation while still matching the broad class.
var (
	// ErrNoPipeline is returned when Dispatch or Draw is called before
	// SetPipeline. Wraps ErrPassContract.
	ErrNoPipeline = fmt.Errorf("%w: no pipeline bound", ErrPassContract)

	// ErrPassTerminated is returned when a second Dispatch or Draw is
	// issued within one pass. Wraps ErrPassContract.
	ErrPassTerminated = fmt.Errorf("%w: pass already terminated", ErrPassContract)

	// ErrSlotOccupied is returned in strict binding mode when a slot is
	// bound twice before the terminator. Wraps ErrPassContract.
	ErrSlotOccupied = fmt.Errorf("%w: bind slot already occupied", ErrPassContract)

	// ErrUsageMismatch is returned when an upload targets a resource
	// created without copy-destination usage. Usage flags declared at
	// creation are the only operations permitted for the resource's
	// lifetime.
	ErrUsageMismatch = errors.New("forge: operation not permitted by resource usage flags")
)
