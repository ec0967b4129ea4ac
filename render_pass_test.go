package forge

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
)

// Fixture with a render target (ID 1), a vertex buffer (ID 2), a plain
// storage buffer (ID 3), and a render pipeline (ID 4).
func renderFixture(t *testing.T, opts ...Option) (*Context, *testDevice, TextureHandle, BufferHandle, BufferHandle, RenderPipelineHandle) {
	t.Helper()
	ctx, dev := newTestContext(t, opts...)
	t.Cleanup(func() { ctx.Close() })

	target, err := ctx.Textures().Create(testRenderTargetDesc())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	vtx, err := ctx.Buffers().Create(BufferDescriptor{
		Size:  60,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	storage, err := ctx.Buffers().Create(testBufferDesc(16))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	pipe, err := ctx.Pipelines().Render(RenderPipelineDescriptor{
		Shader: ShaderSource{WGSL: "@vertex fn vs_main() {} @fragment fn fs_main() {}"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return ctx, dev, target, vtx, storage, pipe
}

func TestRenderPassDrawWithoutPipeline(t *testing.T) {
	ctx, _, target, _, _, _ := renderFixture(t)

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	defer frame.Discard()

	err = frame.Render(target, "bare", func(p *RenderPass) error {
		return p.Draw(3, 1)
	})
	if !errors.Is(err, ErrNoPipeline) {
		t.Errorf("Draw without pipeline = %v, want ErrNoPipeline", err)
	}
}

func TestRenderPassRecordAfterDraw(t *testing.T) {
	ctx, _, target, vtx, _, pipe := renderFixture(t)

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	defer frame.Discard()

	err = frame.Render(target, "twice", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		if err := p.Draw(3, 1); err != nil {
			return err
		}
		return p.Draw(3, 1)
	})
	if !errors.Is(err, ErrPassTerminated) {
		t.Errorf("second Draw = %v, want ErrPassTerminated", err)
	}

	err = frame.Render(target, "late-vertex", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		if err := p.Draw(3, 1); err != nil {
			return err
		}
		return p.SetVertexBuffer(0, vtx)
	})
	if !errors.Is(err, ErrPassTerminated) {
		t.Errorf("SetVertexBuffer after Draw = %v, want ErrPassTerminated", err)
	}
}

func TestRenderPassVertexUsage(t *testing.T) {
	ctx, _, target, _, storage, pipe := renderFixture(t)

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	defer frame.Discard()

	err = frame.Render(target, "wrong-usage", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		return p.SetVertexBuffer(0, storage)
	})
	if !errors.Is(err, ErrUsageMismatch) {
		t.Errorf("SetVertexBuffer on storage buffer = %v, want ErrUsageMismatch", err)
	}
}

func TestRenderPassVertexBufferLastWriteWins(t *testing.T) {
	ctx, dev, target, vtx, _, pipe := renderFixture(t)

	second, err := ctx.Buffers().Create(BufferDescriptor{
		Size:  120,
		Usage: gputypes.BufferUsageVertex,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	err = frame.Render(target, "rebind", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		if err := p.SetVertexBuffer(0, vtx); err != nil {
			return err
		}
		if err := p.SetVertexBuffer(0, second); err != nil {
			return err
		}
		return p.Draw(6, 1)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := frame.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []string{
		"begin-render rebind tex=1",
		"set-pipeline 4",
		"set-vertex-buffer slot=0 buf=5",
		"draw verts=6 instances=1",
		"end-pass",
	}
	if !slices.Equal(dev.submitted[0], want) {
		t.Errorf("submitted stream = %v, want %v", dev.submitted[0], want)
	}
}

func TestRenderPassStrictVertexRebind(t *testing.T) {
	ctx, _, target, vtx, _, pipe := renderFixture(t, WithStrictBinding())

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	defer frame.Discard()

	err = frame.Render(target, "strict", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		if err := p.SetVertexBuffer(0, vtx); err != nil {
			return err
		}
		return p.SetVertexBuffer(0, vtx)
	})
	if !errors.Is(err, ErrSlotOccupied) {
		t.Errorf("strict vertex rebind = %v, want ErrSlotOccupied", err)
	}
}

func TestRenderPassBindingsAndVertexOrder(t *testing.T) {
	ctx, dev, target, vtx, storage, pipe := renderFixture(t)

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	err = frame.Render(target, "full", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		if err := p.BindBuffer(1, storage); err != nil {
			return err
		}
		if err := p.BindTexture(0, target); err != nil {
			return err
		}
		if err := p.SetVertexBuffer(0, vtx); err != nil {
			return err
		}
		return p.Draw(3, 2)
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := frame.Submit(); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []string{
		"begin-render full tex=1",
		"set-pipeline 4",
		"bind-texture slot=0 tex=1",
		"bind-buffer slot=1 buf=3",
		"set-vertex-buffer slot=0 buf=2",
		"draw verts=3 instances=2",
		"end-pass",
	}
	if !slices.Equal(dev.submitted[0], want) {
		t.Errorf("submitted stream = %v, want %v", dev.submitted[0], want)
	}
}

func TestRenderPassStaleVertexHandle(t *testing.T) {
	ctx, _, target, vtx, _, pipe := renderFixture(t)

	if err := ctx.Buffers().Destroy(vtx); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	frame, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	defer frame.Discard()

	err = frame.Render(target, "stale", func(p *RenderPass) error {
		if err := p.SetPipeline(pipe); err != nil {
			return err
		}
		return p.SetVertexBuffer(0, vtx)
	})
	if !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("destroyed vertex buffer = %v, want ErrInvalidHandle", err)
	}
}
