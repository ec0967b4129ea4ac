package null_test

import (
	"errors"
	"testing"

	"github.com/gogpu/forge"
	"github.com/gogpu/forge/backend/null"
)

func newEncoder(t *testing.T) forge.CommandEncoder {
	t.Helper()
	dev := null.New()
	t.Cleanup(dev.Close)
	enc, err := dev.NewEncoder("test")
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	return enc
}

func TestEncoderPassScoping(t *testing.T) {
	enc := newEncoder(t)

	// Pass-scoped commands need an open pass.
	if err := enc.SetPipeline(1); !errors.Is(err, null.ErrNoOpenPass) {
		t.Errorf("SetPipeline outside pass = %v, want ErrNoOpenPass", err)
	}
	if err := enc.EndPass(); !errors.Is(err, null.ErrNoOpenPass) {
		t.Errorf("EndPass outside pass = %v, want ErrNoOpenPass", err)
	}

	if err := enc.BeginComputePass("a"); err != nil {
		t.Fatalf("BeginComputePass: %v", err)
	}
	// Nesting is rejected.
	if err := enc.BeginComputePass("b"); !errors.Is(err, null.ErrPassOpen) {
		t.Errorf("nested BeginComputePass = %v, want ErrPassOpen", err)
	}
	// Finishing mid-pass is rejected.
	if _, err := enc.Finish(); !errors.Is(err, null.ErrPassOpen) {
		t.Errorf("Finish mid-pass = %v, want ErrPassOpen", err)
	}

	if err := enc.EndPass(); err != nil {
		t.Fatalf("EndPass: %v", err)
	}
	if _, err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
}

func TestEncoderDone(t *testing.T) {
	enc := newEncoder(t)
	if _, err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := enc.BeginComputePass("late"); !errors.Is(err, null.ErrEncoderDone) {
		t.Errorf("record after Finish = %v, want ErrEncoderDone", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, null.ErrEncoderDone) {
		t.Errorf("second Finish = %v, want ErrEncoderDone", err)
	}
}

func TestEncoderDiscard(t *testing.T) {
	enc := newEncoder(t)
	if err := enc.BeginComputePass("a"); err != nil {
		t.Fatalf("BeginComputePass: %v", err)
	}
	enc.Discard()
	if err := enc.EndPass(); !errors.Is(err, null.ErrEncoderDone) {
		t.Errorf("record after Discard = %v, want ErrEncoderDone", err)
	}
	if _, err := enc.Finish(); !errors.Is(err, null.ErrEncoderDone) {
		t.Errorf("Finish after Discard = %v, want ErrEncoderDone", err)
	}
}
