package prism

import (
	"log/slog"

	"github.com/rpheuts/ultraviolet-sub001/link"
	"github.com/rpheuts/ultraviolet-sub001/pulse"
)

// Core is the per-link driver described in spec section 4.7: it owns one
// prism instance and one link end, and runs that prism's side of the
// conversation until the peer disconnects.
type Core struct {
	p      Prism
	link   *link.Link
	logger *slog.Logger
}

// NewCore pairs a prism instance with the link it will drive. A nil
// logger falls back to slog.Default().
func NewCore(p Prism, l *link.Link, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	return &Core{p: p, link: l, logger: logger}
}

// Run calls LinkEstablished once, then loops dispatching inbound pulses
// to the prism until Extinguish arrives or the peer drops the link. It
// blocks until the loop exits, so callers typically run it in its own
// goroutine.
func (c *Core) Run() {
	if err := c.p.LinkEstablished(c.link); err != nil {
		c.logger.Error("prism link_established failed", "error", err)
		return
	}

	for {
		id, p, ok, err := c.link.Receive()
		if err != nil {
			c.logger.Error("prism core receive failed", "error", err)
			break
		}
		if !ok {
			// Peer dropped the link without a clean Extinguish.
			break
		}

		if p.Which() == pulse.KindExtinguishPulse {
			if _, err := c.p.HandlePulse(id, p, c.link); err != nil {
				c.logger.Error("prism extinguish handling failed", "error", err)
			}
			break
		}

		handled, err := c.p.HandlePulse(id, p, c.link)
		if err != nil {
			if p.Which() == pulse.KindWavefrontPulse {
				if trapErr := c.link.EmitTrap(id, asPulseError(err)); trapErr != nil {
					c.logger.Error("prism core failed to emit error trap", "id", id, "error", trapErr)
				}
			} else {
				c.logger.Error("prism handle_pulse failed", "id", id, "kind", p.Which(), "error", err)
			}
			continue
		}
		if !handled {
			c.logger.Warn("prism did not handle pulse", "id", id, "kind", p.Which())
		}
	}

	if err := c.p.Shutdown(); err != nil {
		c.logger.Error("prism shutdown failed", "error", err)
	}
	_ = c.link.Close()
}

// asPulseError coerces a plain error into a *pulse.Error so the wire
// carries a classified kind even when a prism author returns a bare error.
func asPulseError(err error) *pulse.Error {
	if pe, ok := err.(*pulse.Error); ok {
		return pe
	}
	return pulse.NewError(pulse.KindExecution, "%v", err)
}
