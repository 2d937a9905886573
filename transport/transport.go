// Package transport provides the low-level byte-frame abstraction a link
// sits on top of. One Send maps to one Receive on the peer side — no
// partial reads, no concatenation.
package transport

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send (and surfaced by Receive) once a transport
// has been closed.
var ErrClosed = errors.New("transport is closed")

// Transport is a bidirectional byte-frame channel. Receive returns
// ok=false when the peer has closed cleanly; any Send after Close fails
// with ErrClosed.
type Transport interface {
	Send(data []byte) error
	Receive() (data []byte, ok bool, err error)
	Close() error
}

// pairEnd is the in-memory implementation returned by NewPair. Two
// pairEnds share a pair of channels, cross-wired so one side's outbound is
// the other's inbound, plus a pair of done signals so either side closing
// is observable by the other without ever closing a data channel (which
// would race with in-flight sends).
type pairEnd struct {
	out chan []byte
	in  chan []byte

	selfDone chan struct{} // closed when this end closes
	peerDone chan struct{} // closed when the peer end closes

	closeOnce sync.Once
}

// pairCapacity bounds unacknowledged frames in flight, per spec's
// back-pressure requirement (capacity >= 64).
const pairCapacity = 64

// NewPair returns two already-wired in-memory transport endpoints. Data
// sent on one is received on the other.
func NewPair() (Transport, Transport) {
	a := make(chan []byte, pairCapacity)
	b := make(chan []byte, pairCapacity)
	d1 := make(chan struct{})
	d2 := make(chan struct{})

	t1 := &pairEnd{out: a, in: b, selfDone: d1, peerDone: d2}
	t2 := &pairEnd{out: b, in: a, selfDone: d2, peerDone: d1}
	return t1, t2
}

func (t *pairEnd) Send(data []byte) error {
	select {
	case <-t.selfDone:
		return ErrClosed
	default:
	}

	select {
	case t.out <- data:
		return nil
	case <-t.selfDone:
		return ErrClosed
	}
}

func (t *pairEnd) Receive() ([]byte, bool, error) {
	select {
	case data := <-t.in:
		return data, true, nil
	case <-t.peerDone:
		// Peer closed; drain anything it sent before closing.
		select {
		case data := <-t.in:
			return data, true, nil
		default:
			return nil, false, nil
		}
	case <-t.selfDone:
		return nil, false, ErrClosed
	}
}

func (t *pairEnd) Close() error {
	t.closeOnce.Do(func() {
		close(t.selfDone)
	})
	return nil
}
