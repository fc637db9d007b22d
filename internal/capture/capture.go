// Package capture provides the Ethernet ingress seam (§6 "Ingress
// (capture layer)"): a narrow Receiver interface plus a Linux
// AF_PACKET implementation, kept external to the decode/reassembly
// core so that core logic never depends on raw-socket access.
package capture

import "errors"

// Frame is one received SV Ethernet frame payload plus the kernel
// timestamp at which it arrived.
type Frame struct {
	// Payload is the frame's payload after Ethernet/VLAN stripping.
	// Valid only until the next call to Recv on the same Receiver.
	Payload []byte
	// TimestampS is the kernel-captured arrival time, seconds since the
	// Unix epoch. The core treats this as a non-negative precondition of
	// the collaborator contract; see ErrNegativeTimestamp.
	TimestampS int64
	// TimestampNS is the nanosecond remainder of the arrival time.
	TimestampNS uint32
}

// ErrNegativeTimestamp is returned by a Receiver when it cannot honour
// the non-negative timestamp precondition (e.g. a misbehaving test
// double); core callers should drop the frame rather than insert it.
var ErrNegativeTimestamp = errors.New("capture: negative timestamp")

// Receiver delivers Ethernet frames carrying SV payloads, pairing each
// with its kernel arrival timestamp. Implementations accept any payload
// up to 1522 bytes; filtering beyond the configured interface/EtherType
// is not their responsibility.
type Receiver interface {
	// Recv blocks until a frame is available and returns it. buf is
	// used as scratch space by some implementations but the returned
	// Frame.Payload is not guaranteed to alias it.
	Recv(buf []byte) (Frame, error)
	Close() error
}

// MaxFrameSize is the maximum size of an Ethernet frame payload this
// package's receivers will read into a single buffer.
const MaxFrameSize = 1522
