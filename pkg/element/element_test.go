package element

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddAssignWraps(t *testing.T) {
	a := Element{Lanes: [LaneCount]uint64{^uint64(0), 1, 0, 0, 0, 0, 0, 0}}
	b := Element{Lanes: [LaneCount]uint64{1, 1, 0, 0, 0, 0, 0, 0}}
	a.AddAssign(b)
	require.Equal(t, uint64(0), a.Lanes[0], "lane 0 should wrap to zero")
	require.Equal(t, uint64(2), a.Lanes[1])
}

func TestXorAssign(t *testing.T) {
	a := Element{Lanes: [LaneCount]uint64{0xFF, 0, 0, 0, 0, 0, 0, 0}}
	b := Element{Lanes: [LaneCount]uint64{0x0F, 0, 0, 0, 0, 0, 0, 0}}
	a.XorAssign(b)
	require.Equal(t, uint64(0xF0), a.Lanes[0])
}

func TestXorAssignBytesPartial(t *testing.T) {
	var e Element
	data := []byte{1, 2, 3}
	e.XorAssignBytes(data)
	require.Equal(t, uint64(0x00030201), e.Lanes[0])
	for i := 1; i < LaneCount; i++ {
		require.Zero(t, e.Lanes[i])
	}
}

func TestXorAssignBytesLeavesUnreadLanesAlone(t *testing.T) {
	e := Element{Lanes: [LaneCount]uint64{0, 0, 42, 0, 0, 0, 0, 0}}
	e.XorAssignBytes(make([]byte, 16))
	require.Equal(t, uint64(42), e.Lanes[2], "lane beyond supplied data must be untouched")
}

func TestXorAssignBytesTruncatesLongInput(t *testing.T) {
	var e Element
	data := make([]byte, 96)
	for i := range data {
		data[i] = 0xFF
	}
	e.XorAssignBytes(data)
	for _, lane := range e.Lanes {
		require.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), lane)
	}
}

func TestLEBytesRoundTrip(t *testing.T) {
	e := Element{Lanes: [LaneCount]uint64{1, 2, 3, 4, 5, 6, 7, 8}}
	b := e.ToLEBytes()
	require.Len(t, b, ByteSize)
	got := FromLEBytes(b[:])
	require.Equal(t, e, got)
}

func TestWriteLEBytesMatchesToLEBytes(t *testing.T) {
	e := Element{Lanes: [LaneCount]uint64{9, 8, 7, 6, 5, 4, 3, 2}}
	want := e.ToLEBytes()
	got := make([]byte, ByteSize)
	e.WriteLEBytes(got)
	require.Equal(t, want[:], got)
}

func TestFromLEBytesPanicsOnWrongLength(t *testing.T) {
	require.Panics(t, func() { FromLEBytes(make([]byte, ByteSize-1)) })
}
