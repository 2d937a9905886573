package link

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/transport"
)

func newPair() (*Link, *Link) {
	a, b := transport.NewPair()
	return New(a, nil), New(b, nil)
}

func TestReflectAndAbsorb(t *testing.T) {
	caller, callee := newPair()
	defer caller.Close()
	defer callee.Close()

	id := uuid.New()

	go func() {
		_, p, ok, err := callee.Receive()
		if err != nil || !ok {
			t.Errorf("callee receive: ok=%v err=%v", ok, err)
			return
		}
		if p.Which() != pulse.KindWavefrontPulse {
			t.Errorf("expected wavefront, got %v", p.Which())
			return
		}
		if err := callee.Reflect(id, map[string]any{"message": "hi"}); err != nil {
			t.Errorf("reflect: %v", err)
		}
	}()

	if err := caller.SendWavefront(id, "echo", map[string]any{"message": "hi"}); err != nil {
		t.Fatalf("send wavefront: %v", err)
	}

	type echoOutput struct {
		Message string `json:"message"`
	}
	out, err := Absorb[echoOutput](caller, id)
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if out.Message != "hi" {
		t.Errorf("got %q, want %q", out.Message, "hi")
	}
}

func TestAbsorbMultiplePhotons(t *testing.T) {
	caller, callee := newPair()
	defer caller.Close()
	defer callee.Close()

	id := uuid.New()

	go func() {
		_, _, _, _ = callee.Receive()
		_ = callee.EmitPhoton(id, 1)
		_ = callee.EmitPhoton(id, 2)
		_ = callee.EmitPhoton(id, 3)
		_ = callee.EmitTrap(id, nil)
	}()

	if err := caller.SendWavefront(id, "list", nil); err != nil {
		t.Fatalf("send wavefront: %v", err)
	}

	got, err := Absorb[[]int](caller, id)
	if err != nil {
		t.Fatalf("absorb: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("got %v", got)
	}
}

func TestAbsorbSurfacesTrapError(t *testing.T) {
	caller, callee := newPair()
	defer caller.Close()
	defer callee.Close()

	id := uuid.New()

	go func() {
		_, _, _, _ = callee.Receive()
		_ = callee.EmitTrap(id, pulse.NewError(pulse.KindMethodNotFound, "unknown frequency %q", "nope"))
	}()

	if err := caller.SendWavefront(id, "nope", nil); err != nil {
		t.Fatalf("send wavefront: %v", err)
	}

	_, err := Absorb[any](caller, id)
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*pulse.Error)
	if !ok {
		t.Fatalf("expected *pulse.Error, got %T", err)
	}
	if pe.Kind != pulse.KindMethodNotFound {
		t.Errorf("kind mismatch: got %s", pe.Kind)
	}
}

func TestReceiveDropsPhotonWithNoOutstandingWavefront(t *testing.T) {
	a, b := newPair()
	defer a.Close()
	defer b.Close()

	orphan := uuid.New()
	if err := b.EmitPhoton(orphan, "should be dropped"); err != nil {
		t.Fatalf("emit photon: %v", err)
	}

	real := uuid.New()
	if err := a.SendWavefront(real, "echo", nil); err != nil {
		t.Fatalf("send wavefront: %v", err)
	}
	_, p, ok, err := b.Receive()
	if err != nil || !ok {
		t.Fatalf("receive: ok=%v err=%v", ok, err)
	}
	if p.Which() != pulse.KindWavefrontPulse {
		t.Fatalf("expected wavefront, got %v", p.Which())
	}

	if err := b.Reflect(real, "ok"); err != nil {
		t.Fatalf("reflect: %v", err)
	}

	id, p, ok, err := a.Receive()
	if err != nil || !ok {
		t.Fatalf("receive: ok=%v err=%v", ok, err)
	}
	if id != real || p.Which() != pulse.KindPhotonPulse {
		t.Fatalf("expected photon for real id, got id=%s kind=%v", id, p.Which())
	}
}

func TestCloseSendsExtinguish(t *testing.T) {
	a, b := newPair()
	defer b.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, p, ok, err := b.Receive()
		if err != nil || !ok {
			t.Errorf("receive: ok=%v err=%v", ok, err)
			return
		}
		if p.Which() != pulse.KindExtinguishPulse {
			t.Errorf("expected extinguish, got %v", p.Which())
		}
	}()

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("did not observe extinguish")
	}
}
