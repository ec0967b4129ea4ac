package forge

import (
	"errors"
	"fmt"
	"time"
)

// App is the application-side half of the engine loop. Run drives it: Init
// once, then Update and RenderFrame once per frame until the app returns
// ErrQuit or an error.
type App interface {
	// Init is called once before the first frame. The context stays valid
	// for the whole run; apps typically create their long-lived resources
	// here.
	Init(ctx *Context) error

	// Update advances application state by dt, the wall time since the
	// previous Update (zero on the first frame). Returning ErrQuit stops
	// the loop cleanly.
	Update(dt time.Duration) error

	// RenderFrame records the frame's passes. The frame is already open;
	// Run submits it after RenderFrame returns, unless the app submitted
	// or discarded it itself. Returning ErrQuit discards the frame and
	// stops the loop cleanly.
	RenderFrame(frame *Frame) error
}

// RunConfig controls the Run loop.
type RunConfig struct {
	// MaxFrames stops the loop after this many submitted frames. Zero
	// means run until the app returns ErrQuit or fails.
	MaxFrames int
}

// Run drives app against ctx until the app quits, an error occurs, or
// MaxFrames is reached. ErrQuit is a clean stop and returns nil. Run does
// not close the context; the caller owns it.
func Run(ctx *Context, app App, cfg RunConfig) error {
	if err := app.Init(ctx); err != nil {
		return fmt.Errorf("app init: %w", err)
	}

	last := time.Now()
	first := true
	for frames := 0; cfg.MaxFrames == 0 || frames < cfg.MaxFrames; frames++ {
		now := time.Now()
		dt := now.Sub(last)
		last = now
		if first {
			dt = 0
			first = false
		}

		if err := app.Update(dt); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return fmt.Errorf("app update: %w", err)
		}

		frame, err := ctx.BeginFrame()
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}

		if err := app.RenderFrame(frame); err != nil {
			if frame.State() == FrameOpen {
				_ = frame.Discard()
			}
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return fmt.Errorf("app render: %w", err)
		}

		if frame.State() == FrameOpen {
			if err := frame.Submit(); err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}
	}
	return nil
}
