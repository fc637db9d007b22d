// Package sampleq reassembles decoded ASDUs into time-aligned sample
// windows (SampleBuffer) and holds the in-flight set of windows
// (SampleBufferQueue) that the capture goroutine feeds and the dispatch
// scheduler drains.
package sampleq

import (
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampletime"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/wire"
)

// sendDelay is the fixed interval after a window's nominal end time at
// which it should be dispatched, giving slightly-late samples a last
// chance to land in the still-open window.
const sendDelay = 0.005 // seconds

// Channel holds one channel's worth of samples for a window, plus the
// largest absolute value inserted so far (so the OpenPMU encoder never
// has to rescan the buffer to find it).
type Channel struct {
	Buffer []float32
	Max    float32
}

func newChannel(length uint32) Channel {
	return Channel{Buffer: make([]float32, length)}
}

// insertSample writes v at index and grows Max to cover it.
//
// Duplicate writes to the same index overwrite silently and do not
// revisit Max: if a later write replaces the sample that established
// Max with a smaller value, Max can overstate the window's true peak.
// This mirrors the upstream implementation's documented behaviour
// rather than correcting it.
func (c *Channel) insertSample(index uint32, v float32) {
	c.Buffer[index] = v
	if abs := absF32(v); abs > c.Max {
		c.Max = abs
	}
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Buffer is a time-aligned window covering exactly Length sample
// periods, identified by StartTime (whose sub-second sample count is a
// multiple of Length). It owns eight channels: currents A/B/C/N then
// voltages A/B/C/N, matching wire.Sample's field order.
type Buffer struct {
	Channels   [8]Channel
	SampleRate uint32
	StartTime  sampletime.Time
	Length     uint32
}

// Channel indices within Buffer.Channels.
const (
	chCurrentA = iota
	chCurrentB
	chCurrentC
	chCurrentN
	chVoltageA
	chVoltageB
	chVoltageC
	chVoltageN
)

// NewBuffer allocates a zero-filled window.
func NewBuffer(rate uint32, start sampletime.Time, length uint32) *Buffer {
	b := &Buffer{SampleRate: rate, StartTime: start, Length: length}
	for i := range b.Channels {
		b.Channels[i] = newChannel(length)
	}
	return b
}

// InsertSample maps smpCnt onto an index within the window and writes
// sample's eight channel values there, reporting whether the write
// happened. A smpCnt that does not fall within
// [StartTime.SubsecSamples, StartTime.SubsecSamples+Length) belongs to
// a window this buffer does not cover and is not written; the caller
// (Queue.InsertSample) is responsible for surfacing that as a drop.
func (b *Buffer) InsertSample(smpCnt uint32, sample wire.Sample) bool {
	index := smpCnt - b.StartTime.SubsecSamples(b.SampleRate)
	if index >= b.Length {
		return false
	}
	b.Channels[chCurrentA].insertSample(index, sample.CurrentA)
	b.Channels[chCurrentB].insertSample(index, sample.CurrentB)
	b.Channels[chCurrentC].insertSample(index, sample.CurrentC)
	b.Channels[chCurrentN].insertSample(index, sample.CurrentN)
	b.Channels[chVoltageA].insertSample(index, sample.VoltageA)
	b.Channels[chVoltageB].insertSample(index, sample.VoltageB)
	b.Channels[chVoltageC].insertSample(index, sample.VoltageC)
	b.Channels[chVoltageN].insertSample(index, sample.VoltageN)
	return true
}

// IsWithin reports whether ts falls within this window's timespan.
func (b *Buffer) IsWithin(ts sampletime.Time) bool {
	return ts >= b.StartTime && ts < b.StartTime.AddSamples(b.Length)
}

// IsAfter reports whether ts falls at or beyond the end of this
// window's timespan.
func (b *Buffer) IsAfter(ts sampletime.Time) bool {
	return ts >= b.StartTime.AddSamples(b.Length)
}

// SendTime is the wall-clock instant, in seconds since the Unix epoch,
// at which this window should be dispatched.
func (b *Buffer) SendTime() float64 {
	return b.StartTime.AddSamples(b.Length).SecondsFloat(b.SampleRate) + sendDelay
}
