// Package service exposes the pulse protocol over WebSocket, per spec
// section 4.9. One session owns the connection and the set of prism
// links its pulses are currently routed through.
package service

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/transport"
)

// linker is the multiplexer capability a session needs. Declared at
// point of use so session tests can substitute a fake.
type linker interface {
	EstablishLink(prismID string) (*link.Link, error)
}

// session owns one WebSocket connection and the map of pulse ids
// currently routed to prism links established through the multiplexer.
// The client-facing side is itself a *link.Link over transport.WebSocket,
// so socket framing, read limits, and concurrent-write safety come from
// that pair rather than being hand-rolled here.
type session struct {
	clientLink *link.Link
	mux        linker
	logger     *slog.Logger

	linksMu sync.Mutex
	links   map[uuid.UUID]*link.Link

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, mux linker, logger *slog.Logger) *session {
	if logger == nil {
		logger = slog.Default()
	}
	return &session{
		clientLink: link.New(transport.NewWebSocket(conn), logger),
		mux:        mux,
		logger:     logger,
		links:      make(map[uuid.UUID]*link.Link),
	}
}

// run drives the session to completion: it reads wavefronts off the
// client link until the socket closes or Extinguish arrives, then
// extinguishes every link the session established on the client's behalf.
func (s *session) run() {
	for {
		id, p, ok, err := s.clientLink.Receive()
		if err != nil {
			s.logger.Debug("session client link receive failed", "error", err)
			break
		}
		if !ok {
			break
		}

		switch p.Which() {
		case pulse.KindExtinguishPulse:
			s.shutdown()
			return
		case pulse.KindWavefrontPulse:
			go s.handleWavefront(id, p.Wavefront)
		default:
			s.logger.Warn("dropping unexpected client pulse kind", "kind", p.Which())
		}
	}

	s.shutdown()
}

// resolveTarget splits a client-supplied frequency into the prism id and
// wavelength frequency it actually names, per spec section 6: either an
// explicit sibling "prism" field, or the compound "namespace:name:freq"
// form.
func resolveTarget(frequency, prism string) (prismID, actualFrequency string, err error) {
	if prism != "" {
		return prism, frequency, nil
	}
	parts := strings.SplitN(frequency, ":", 3)
	if len(parts) == 3 {
		return parts[0] + ":" + parts[1], parts[2], nil
	}
	return "", "", pulse.NewError(pulse.KindInvalidInput,
		"wavefront frequency %q: no sibling prism field and not namespace:name:frequency", frequency)
}

// handleWavefront establishes the target link a client wavefront names,
// forwards it, and drains the response back to the client under the same
// id. It runs in its own goroutine per inbound wavefront so one slow
// prism call never blocks the read loop or another in-flight call.
func (s *session) handleWavefront(id uuid.UUID, wavefront *pulse.Wavefront) {
	prismID, actualFrequency, err := resolveTarget(wavefront.Frequency, wavefront.Prism)
	if err != nil {
		s.emitTrap(id, asPulseError(err))
		return
	}

	targetLink, err := s.mux.EstablishLink(prismID)
	if err != nil {
		s.emitTrap(id, asPulseError(err))
		return
	}

	if err := targetLink.SendWavefront(id, actualFrequency, wavefront.Input); err != nil {
		s.emitTrap(id, asPulseError(err))
		_ = targetLink.Close()
		return
	}

	s.linksMu.Lock()
	s.links[id] = targetLink
	s.linksMu.Unlock()

	s.drain(id, targetLink)
}

// drain reads every pulse the established link produces for id and
// relays it to the client, removing the routing entry once the trap
// arrives.
func (s *session) drain(id uuid.UUID, l *link.Link) {
	defer func() {
		s.linksMu.Lock()
		delete(s.links, id)
		s.linksMu.Unlock()
	}()

	for {
		_, p, ok, err := l.Receive()
		if err != nil {
			s.logger.Warn("session drain failed", "id", id, "error", err)
			s.emitTrap(id, pulse.NewError(pulse.KindTransport, "%v", err))
			return
		}
		if !ok {
			return
		}

		switch p.Which() {
		case pulse.KindExtinguishPulse:
			return
		case pulse.KindPhotonPulse:
			if err := s.clientLink.EmitPhoton(id, p.Photon.Data); err != nil {
				s.logger.Debug("session emit photon failed", "id", id, "error", err)
				return
			}
		case pulse.KindTrapPulse:
			if err := s.clientLink.EmitTrap(id, p.Trap.Error); err != nil {
				s.logger.Debug("session emit trap failed", "id", id, "error", err)
			}
			return
		}
	}
}

func (s *session) emitTrap(id uuid.UUID, err *pulse.Error) {
	if emitErr := s.clientLink.EmitTrap(id, err); emitErr != nil {
		s.logger.Debug("session emit trap failed", "id", id, "error", emitErr)
	}
}

// shutdown extinguishes every link the session owns and closes the
// client link. Safe to call more than once.
func (s *session) shutdown() {
	s.closeOnce.Do(func() {
		s.linksMu.Lock()
		links := make([]*link.Link, 0, len(s.links))
		for _, l := range s.links {
			links = append(links, l)
		}
		s.links = make(map[uuid.UUID]*link.Link)
		s.linksMu.Unlock()

		for _, l := range links {
			_ = l.Close()
		}
		_ = s.clientLink.Close()
	})
}

func asPulseError(err error) *pulse.Error {
	if pe, ok := err.(*pulse.Error); ok {
		return pe
	}
	return pulse.NewError(pulse.KindOther, "%v", err)
}
