// Package pulse defines the wire-level message types that flow over a
// link: the wavefront that starts a pulse, the photons that stream its
// response, and the trap that closes it.
package pulse

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind classifies a Trap's error so callers can branch on it without
// parsing the message string.
type ErrorKind string

const (
	KindMethodNotFound    ErrorKind = "method-not-found"
	KindInvalidInput      ErrorKind = "invalid-input"
	KindExecution         ErrorKind = "execution"
	KindTransport         ErrorKind = "transport"
	KindRefraction        ErrorKind = "refraction"
	KindPropertyMapping   ErrorKind = "property-mapping"
	KindSerialization     ErrorKind = "serialization"
	KindOther             ErrorKind = "other"
)

// Error is the structured error carried on a Trap. It implements the error
// interface so it composes with fmt.Errorf("...: %w", err) like any other
// Go error.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a pulse.Error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wavefront starts a pulse: id, the frequency (wavelength name) to invoke,
// and the input shaped according to that wavelength's schema. Prism is an
// optional sibling field a WebSocket client may set to name the target
// prism explicitly, per spec section 6, as an alternative to folding it
// into the compound "namespace:name:frequency" form of Frequency.
type Wavefront struct {
	ID        uuid.UUID `json:"id"`
	Frequency string    `json:"frequency"`
	Input     any       `json:"input"`
	Prism     string    `json:"prism,omitempty"`
}

// Photon carries one datum of a pulse's response stream. Zero or more may
// appear between a Wavefront and its Trap.
type Photon struct {
	ID   uuid.UUID `json:"id"`
	Data any       `json:"data"`
}

// Trap closes a pulse. A nil Error means success.
type Trap struct {
	ID    uuid.UUID `json:"id"`
	Error *Error    `json:"error,omitempty"`
}

// Kind identifies which variant a Pulse holds.
type Kind int

const (
	KindWavefrontPulse Kind = iota
	KindPhotonPulse
	KindTrapPulse
	KindExtinguishPulse
)

// Pulse is the tagged union of the four message variants on a link. Exactly
// one of Wavefront, Photon, or Trap is non-nil unless Extinguish is set.
type Pulse struct {
	Wavefront  *Wavefront
	Photon     *Photon
	Trap       *Trap
	Extinguish bool
}

// Which reports which variant this Pulse holds.
func (p Pulse) Which() Kind {
	switch {
	case p.Wavefront != nil:
		return KindWavefrontPulse
	case p.Photon != nil:
		return KindPhotonPulse
	case p.Trap != nil:
		return KindTrapPulse
	default:
		return KindExtinguishPulse
	}
}

// ID returns the correlation id carried by this pulse, or the zero UUID for
// Extinguish (which carries none).
func (p Pulse) ID() uuid.UUID {
	switch {
	case p.Wavefront != nil:
		return p.Wavefront.ID
	case p.Photon != nil:
		return p.Photon.ID
	case p.Trap != nil:
		return p.Trap.ID
	default:
		return uuid.Nil
	}
}

// wireEnvelope mirrors the JSON-tagged-enum shape the original Rust
// implementation serializes: {"Wavefront":{...}}, {"Photon":{...}},
// {"Trap":{...}}, {"Extinguish":null}.
type wireEnvelope struct {
	Wavefront  *Wavefront `json:"Wavefront,omitempty"`
	Photon     *Photon    `json:"Photon,omitempty"`
	Trap       *Trap      `json:"Trap,omitempty"`
	Extinguish *struct{}  `json:"Extinguish,omitempty"`
}

// MarshalJSON emits the stable tagged-enum shape documented in spec §6.
func (p Pulse) MarshalJSON() ([]byte, error) {
	env := wireEnvelope{}
	switch {
	case p.Wavefront != nil:
		env.Wavefront = p.Wavefront
	case p.Photon != nil:
		env.Photon = p.Photon
	case p.Trap != nil:
		env.Trap = p.Trap
	default:
		return []byte(`{"Extinguish":null}`), nil
	}
	return json.Marshal(env)
}

// UnmarshalJSON parses the tagged-enum wire shape back into a Pulse.
func (p *Pulse) UnmarshalJSON(data []byte) error {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode pulse: %w", err)
	}

	switch {
	case env.Wavefront != nil:
		p.Wavefront = env.Wavefront
	case env.Photon != nil:
		p.Photon = env.Photon
	case env.Trap != nil:
		p.Trap = env.Trap
	case env.Extinguish != nil:
		p.Extinguish = true
	default:
		// {"Extinguish":null} leaves env.Extinguish nil, so check for the key.
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err == nil {
			if _, ok := keys["Extinguish"]; ok {
				p.Extinguish = true
				return nil
			}
		}
		return fmt.Errorf("decode pulse: unrecognized pulse shape %s", string(data))
	}
	return nil
}

// NewWavefront constructs a Pulse wrapping a Wavefront.
func NewWavefront(id uuid.UUID, frequency string, input any) Pulse {
	return Pulse{Wavefront: &Wavefront{ID: id, Frequency: frequency, Input: input}}
}

// NewPhoton constructs a Pulse wrapping a Photon.
func NewPhoton(id uuid.UUID, data any) Pulse {
	return Pulse{Photon: &Photon{ID: id, Data: data}}
}

// NewTrap constructs a Pulse wrapping a Trap.
func NewTrap(id uuid.UUID, err *Error) Pulse {
	return Pulse{Trap: &Trap{ID: id, Error: err}}
}

// NewExtinguish constructs the Extinguish pulse.
func NewExtinguish() Pulse {
	return Pulse{Extinguish: true}
}
