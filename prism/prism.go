// Package prism defines the contract every prism implements and the
// per-link driver that runs it. One Prism instance is paired with exactly
// one Link for its entire lifetime (spec section 4.8's instantiation
// policy); handle_pulse may hold per-link state without synchronization
// beyond what the prism itself introduces.
package prism

import (
	"github.com/google/uuid"

	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"
)

// Prism is the single contract implementations satisfy. It resolves the
// source's dual-trait ambiguity (init vs. init_spectrum+init_multiplexer)
// onto one surface.
type Prism interface {
	// Init is called once, immediately after construction, with the
	// prism's own declared spectrum.
	Init(s *spectrum.Spectrum) error

	// LinkEstablished is called once, before the driver loop starts
	// reading, so a prism can do per-link setup (e.g. announce presence).
	LinkEstablished(l *link.Link) error

	// HandlePulse is called for every inbound pulse, including a final
	// call with Extinguish just before Shutdown. handled reports whether the prism recognized and acted on the
	// pulse; Core logs unhandled pulses but does not treat them as
	// fatal.
	HandlePulse(id uuid.UUID, p pulse.Pulse, l *link.Link) (handled bool, err error)

	// Shutdown is called once, after Extinguish is observed (or the link
	// peer drops), before the driver loop exits.
	Shutdown() error
}

// BasePrism supplies no-op defaults for the optional hooks so a concrete
// prism can embed it and override only HandlePulse.
type BasePrism struct{}

func (BasePrism) Init(*spectrum.Spectrum) error    { return nil }
func (BasePrism) LinkEstablished(*link.Link) error { return nil }
func (BasePrism) Shutdown() error                  { return nil }
