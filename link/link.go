// Package link provides the typed framing layer over a transport: sending
// wavefronts, streaming photons, terminating with a trap, and the
// absorb/reflect convenience helpers described in spec section 4.3.
package link

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/transport"
)

// Link wraps one transport end and exposes the pulse protocol's typed
// operations. A Link tracks, on its own side, which ids it has issued
// wavefronts for (so incoming photons/traps for unknown ids are protocol
// violations to be dropped and logged) and which ids it has received
// wavefronts for. EmitTrap removes an id from the received set but does
// not check it: a trap for an id that was never received, or a second
// trap for the same id, is still sent.
type Link struct {
	transport transport.Transport
	logger    *slog.Logger

	mu          sync.Mutex
	sentIDs     map[uuid.UUID]struct{}
	receivedIDs map[uuid.UUID]struct{}

	closeOnce sync.Once
}

// New wraps a transport end in a Link. A nil logger falls back to
// slog.Default().
func New(t transport.Transport, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		transport:   t,
		logger:      logger,
		sentIDs:     make(map[uuid.UUID]struct{}),
		receivedIDs: make(map[uuid.UUID]struct{}),
	}
}

func (l *Link) send(p pulse.Pulse) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pulse: %w", err)
	}
	if err := l.transport.Send(data); err != nil {
		return fmt.Errorf("send pulse: %w", err)
	}
	return nil
}

// SendWavefront starts a new pulse with the given id, frequency, and input.
func (l *Link) SendWavefront(id uuid.UUID, frequency string, input any) error {
	l.mu.Lock()
	l.sentIDs[id] = struct{}{}
	l.mu.Unlock()

	if err := l.send(pulse.NewWavefront(id, frequency, input)); err != nil {
		l.mu.Lock()
		delete(l.sentIDs, id)
		l.mu.Unlock()
		return err
	}
	return nil
}

// EmitPhoton streams one datum for an id this side received a wavefront
// for.
func (l *Link) EmitPhoton(id uuid.UUID, data any) error {
	return l.send(pulse.NewPhoton(id, data))
}

// EmitTrap closes the pulse for id. It MUST be the last pulse sent for
// that id. err may be nil for success.
func (l *Link) EmitTrap(id uuid.UUID, err *pulse.Error) error {
	l.mu.Lock()
	delete(l.receivedIDs, id)
	l.mu.Unlock()
	return l.send(pulse.NewTrap(id, err))
}

// Reflect is the single-response convenience: emit one photon, then a
// success trap.
func (l *Link) Reflect(id uuid.UUID, value any) error {
	if err := l.EmitPhoton(id, value); err != nil {
		return err
	}
	return l.EmitTrap(id, nil)
}

// Receive reads the next pulse off the transport, demultiplexing it
// against this link's tracked ids. ok=false means the peer closed
// cleanly. Photons or traps for an id this side never sent a wavefront
// for are protocol violations: they are dropped and logged, and Receive
// keeps reading rather than surfacing them.
func (l *Link) Receive() (uuid.UUID, pulse.Pulse, bool, error) {
	for {
		data, ok, err := l.transport.Receive()
		if err != nil {
			return uuid.Nil, pulse.Pulse{}, false, fmt.Errorf("link receive: %w", err)
		}
		if !ok {
			return uuid.Nil, pulse.Pulse{}, false, nil
		}

		var p pulse.Pulse
		if err := json.Unmarshal(data, &p); err != nil {
			l.logger.Error("dropping malformed pulse", "error", err)
			continue
		}

		if p.Which() == pulse.KindExtinguishPulse {
			return uuid.Nil, p, true, nil
		}

		id := p.ID()

		switch p.Which() {
		case pulse.KindWavefrontPulse:
			l.mu.Lock()
			l.receivedIDs[id] = struct{}{}
			l.mu.Unlock()

		case pulse.KindPhotonPulse, pulse.KindTrapPulse:
			l.mu.Lock()
			_, known := l.sentIDs[id]
			l.mu.Unlock()
			if !known {
				l.logger.Warn("dropping pulse for id with no outstanding wavefront",
					"id", id, "kind", p.Which())
				continue
			}
			if p.Which() == pulse.KindTrapPulse {
				l.mu.Lock()
				delete(l.sentIDs, id)
				l.mu.Unlock()
			}
		}

		return id, p, true, nil
	}
}

// Close sends Extinguish and closes the underlying transport.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.send(pulse.NewExtinguish())
		err = l.transport.Close()
	})
	return err
}

// Absorb collects every photon emitted for id, combines them (a single
// photon yields that value; multiple photons yield an array), and decodes
// the result into T. Any trap error for id is surfaced verbatim. Absorb
// assumes it is the only reader draining this link for id's lifetime.
func Absorb[T any](l *Link, id uuid.UUID) (T, error) {
	var zero T
	var photons []any

	for {
		_, p, ok, err := l.Receive()
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, pulse.NewError(pulse.KindTransport, "link closed before trap for %s", id)
		}

		switch p.Which() {
		case pulse.KindExtinguishPulse:
			return zero, pulse.NewError(pulse.KindTransport, "link extinguished before trap for %s", id)

		case pulse.KindPhotonPulse:
			if p.Photon.ID == id {
				photons = append(photons, p.Photon.Data)
			}

		case pulse.KindTrapPulse:
			if p.Trap.ID != id {
				continue
			}
			if p.Trap.Error != nil {
				return zero, p.Trap.Error
			}

			var combined any
			switch len(photons) {
			case 0:
				combined = nil
			case 1:
				combined = photons[0]
			default:
				combined = photons
			}

			raw, err := json.Marshal(combined)
			if err != nil {
				return zero, fmt.Errorf("absorb: encode intermediate value: %w", err)
			}
			if err := json.Unmarshal(raw, &zero); err != nil {
				return zero, fmt.Errorf("absorb: decode into target type: %w", err)
			}
			return zero, nil
		}
	}
}
