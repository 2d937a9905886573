// Package echo is the reference prism for example:echo: it reflects
// whatever input it receives back as a single photon. It exists both as
// a worked example of the prism contract and as the fixture other
// packages' tests wire against.
package echo

import (
	"github.com/google/uuid"

	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/prism"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
	"github.com/rpheuts/ultraviolet-sub001/spectrum"
)

// Prism implements the "echo" wavelength declared in this package's
// spectrum.json.
type Prism struct {
	prism.BasePrism
	spectrum *spectrum.Spectrum
}

// New constructs a fresh Prism instance. The multiplexer calls this once
// per establish_link, per spec section 4.8's instantiation policy.
func New() *Prism {
	return &Prism{}
}

// Init stores the spectrum the multiplexer resolved for this instance.
func (p *Prism) Init(s *spectrum.Spectrum) error {
	p.spectrum = s
	return nil
}

// HandlePulse reflects the wavefront's input back verbatim on the "echo"
// frequency; any other frequency yields a method-not-found trap, per
// spec section 8's "calling an unknown frequency yields a
// method-not-found trap" boundary behavior.
func (p *Prism) HandlePulse(id uuid.UUID, pl pulse.Pulse, l *link.Link) (bool, error) {
	if pl.Which() != pulse.KindWavefrontPulse {
		return false, nil
	}
	switch pl.Wavefront.Frequency {
	case "echo":
		if err := l.Reflect(id, pl.Wavefront.Input); err != nil {
			return true, pulse.NewError(pulse.KindTransport, "echo reflect: %v", err)
		}
		return true, nil
	default:
		if err := l.EmitTrap(id, pulse.NewError(pulse.KindMethodNotFound, "unknown frequency %q", pl.Wavefront.Frequency)); err != nil {
			return true, pulse.NewError(pulse.KindTransport, "echo trap: %v", err)
		}
		return true, nil
	}
}
