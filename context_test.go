package forge

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNewContextNilDevice(t *testing.T) {
	if _, err := NewContext(nil); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewContext(nil) = %v, want ErrNilDevice", err)
	}
}

func TestContextSingleOpenFrame(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if _, err := ctx.BeginFrame(); !errors.Is(err, ErrFrameOpen) {
		t.Errorf("second BeginFrame = %v, want ErrFrameOpen", err)
	}

	if err := frame.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// Submitting released the slot.
	next, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame after submit: %v", err)
	}
	if err := next.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	// So did discarding.
	again, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame after discard: %v", err)
	}
	if err := again.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
}

func TestContextUploadBuffer(t *testing.T) {
	ctx, dev := newTestContext(t)
	defer ctx.Close()

	h, err := ctx.Buffers().Create(testBufferDesc(8))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ctx.UploadBuffer(h, 2, []byte{1, 2, 3}); err != nil {
		t.Fatalf("UploadBuffer: %v", err)
	}

	info, _ := ctx.Buffers().Get(h)
	got := dev.buffers[info.ID]
	want := []byte{0, 0, 1, 2, 3, 0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("buffer data = %v, want %v", got, want)
		}
	}
}

func TestContextUploadBufferUsageMismatch(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	h, err := ctx.Buffers().Create(BufferDescriptor{
		Size:  8,
		Usage: gputypes.BufferUsageStorage, // no CopyDst
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ctx.UploadBuffer(h, 0, []byte{1}); !errors.Is(err, ErrUsageMismatch) {
		t.Errorf("UploadBuffer = %v, want ErrUsageMismatch", err)
	}
}

func TestContextUploadBufferOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		offset uint64
		data   []byte
	}{
		{"past end", 2, []byte{1, 2, 3}},
		{"offset beyond size", 5, []byte{1}},
		{"offset wraps uint64", ^uint64(0) - 7, make([]byte, 16)},
		{"max offset one byte", ^uint64(0), []byte{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := newTestContext(t)
			defer ctx.Close()

			h, err := ctx.Buffers().Create(testBufferDesc(4))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := ctx.UploadBuffer(h, tt.offset, tt.data); !errors.Is(err, ErrAllocation) {
				t.Errorf("UploadBuffer(offset=%d, %d bytes) = %v, want ErrAllocation",
					tt.offset, len(tt.data), err)
			}
		})
	}
}

func TestContextUploadTextureUsageMismatch(t *testing.T) {
	ctx, _ := newTestContext(t)
	defer ctx.Close()

	h, err := ctx.Textures().Create(TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 4, Height: 4},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageTextureBinding, // no CopyDst
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := ctx.UploadTexture(h, make([]byte, 64), 16); !errors.Is(err, ErrUsageMismatch) {
		t.Errorf("UploadTexture = %v, want ErrUsageMismatch", err)
	}
}

func TestContextCloseDestroysEverything(t *testing.T) {
	ctx, dev := newTestContext(t)

	if _, err := ctx.Buffers().Create(testBufferDesc(16)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ctx.Textures().Create(TextureDescriptor{
		Size:   gputypes.Extent3D{Width: 4, Height: 4},
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  gputypes.TextureUsageCopyDst,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ctx.Pipelines().Compute(testComputeDesc("p")); err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(dev.buffers) != 0 || len(dev.textures) != 0 || len(dev.pipelines) != 0 {
		t.Errorf("device objects alive after close: %d buffers %d textures %d pipelines",
			len(dev.buffers), len(dev.textures), len(dev.pipelines))
	}
	if !dev.closed {
		t.Error("device not closed")
	}

	// Idempotent.
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	// Everything else refuses.
	if _, err := ctx.BeginFrame(); !errors.Is(err, ErrContextClosed) {
		t.Errorf("BeginFrame after close = %v, want ErrContextClosed", err)
	}
}

func TestContextCloseWithOpenFrame(t *testing.T) {
	ctx, _ := newTestContext(t)

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := ctx.Close(); !errors.Is(err, ErrFrameOpen) {
		t.Fatalf("Close with open frame = %v, want ErrFrameOpen", err)
	}
	if err := frame.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
