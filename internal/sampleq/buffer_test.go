package sampleq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Celisium/openpmu-61850-sv-bridge/internal/sampletime"
	"github.com/Celisium/openpmu-61850-sv-bridge/internal/wire"
)

func TestBuffer_InsertSample_WithinWindow(t *testing.T) {
	buf := NewBuffer(4000, sampletime.FromSecondsAndSamples(0, 0, 4000), 40)
	ok := buf.InsertSample(5, wire.Sample{CurrentA: 1.5, VoltageA: 230})
	assert.True(t, ok)
	assert.Equal(t, float32(1.5), buf.Channels[chCurrentA].Buffer[5])
	assert.Equal(t, float32(230), buf.Channels[chVoltageA].Buffer[5])
	assert.Equal(t, float32(1.5), buf.Channels[chCurrentA].Max)
}

func TestBuffer_InsertSample_OutOfRangeDropped(t *testing.T) {
	buf := NewBuffer(4000, sampletime.FromSecondsAndSamples(0, 40, 4000), 40)
	// smpCnt=39 is before this window's start (40); index underflows to a
	// huge value and must be reported as not inserted, not panic.
	var ok bool
	assert.NotPanics(t, func() {
		ok = buf.InsertSample(39, wire.Sample{CurrentA: 1})
	})
	assert.False(t, ok)
	assert.Equal(t, float32(0), buf.Channels[chCurrentA].Buffer[0])
}

func TestBuffer_Max_NotRevisitedOnOverwrite(t *testing.T) {
	buf := NewBuffer(4000, sampletime.FromSecondsAndSamples(0, 0, 4000), 40)
	buf.InsertSample(0, wire.Sample{CurrentA: 10})
	buf.InsertSample(0, wire.Sample{CurrentA: 2})
	assert.Equal(t, float32(2), buf.Channels[chCurrentA].Buffer[0])
	assert.Equal(t, float32(10), buf.Channels[chCurrentA].Max)
}

func TestQueue_InsertSample_CreatesAlignedWindow(t *testing.T) {
	q := NewQueue()
	reason := q.InsertSample(1_700_000_000, 900_000_000, 4000, 40, wire.Asdu{SmpCnt: 45, Sample: wire.Sample{CurrentA: 1}})
	assert.Equal(t, DropNone, reason)
	require.Equal(t, 1, q.Len())
	head := q.Pop()
	assert.Equal(t, uint32(40), head.StartTime.SubsecSamples(4000))
	assert.Equal(t, float32(1), head.Channels[chCurrentA].Buffer[5])
}

func TestQueue_InsertSample_RolloverCorrection(t *testing.T) {
	q := NewQueue()
	// smpCnt offset in ns exceeds the reported nanosecond timestamp: the
	// sample must be attributed to the previous second.
	reason := q.InsertSample(1_700_000_001, 100, 4000, 40, wire.Asdu{SmpCnt: 3999, Sample: wire.Sample{CurrentA: 1}})
	assert.Equal(t, DropNone, reason)
	require.Equal(t, 1, q.Len())
	head := q.Pop()
	assert.Equal(t, uint64(1_700_000_000), head.StartTime.Seconds(4000))
}

func TestQueue_InsertSample_LateSampleDroppedSilently(t *testing.T) {
	q := NewQueue()
	reason := q.InsertSample(200, 500_000_000, 4000, 40, wire.Asdu{SmpCnt: 0, Sample: wire.Sample{CurrentA: 1}})
	require.Equal(t, DropNone, reason)
	// This sample's timestamp is long before the existing window and
	// there is no older window to insert into: it must be reported as
	// DropTooOld, not create a second window or panic.
	var late DropReason
	assert.NotPanics(t, func() {
		late = q.InsertSample(100, 500_000_000, 4000, 40, wire.Asdu{SmpCnt: 0, Sample: wire.Sample{CurrentA: 9}})
	})
	assert.Equal(t, DropTooOld, late)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Wait_ReturnsFalseAfterSetDone(t *testing.T) {
	q := NewQueue()
	q.SetDone()
	_, ok := q.Wait(func() float64 { return 0 })
	assert.False(t, ok)
}

func TestQueue_Pop_PanicsOnEmptyQueue(t *testing.T) {
	q := NewQueue()
	assert.Panics(t, func() { q.Pop() })
}
