package wire

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type frameCollector struct {
	payloads [][]byte
}

func (c *frameCollector) HandleFrame(f Frame) {
	c.payloads = append(c.payloads, append([]byte(nil), f.Payload()...))
}

func mustEncode(t *testing.T, payload []byte) []byte {
	f, err := Encode(payload)
	require.NoError(t, err)
	return f
}

// noise returns bytes which can never contain a start marker.
func noise(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 0x40)
	}
	return b
}

func randomPayload(rnd *rand.Rand, n int) []byte {
	p := make([]byte, n)
	rnd.Read(p)
	return p
}

func feedInChunks(r *Reassembler, stream []byte, size int, h FrameHandler) int {
	frames := 0
	for len(stream) > 0 {
		n := size
		if n > len(stream) {
			n = len(stream)
		}
		frames += r.Feed(stream[:n], h)
		stream = stream[n:]
	}
	return frames
}

func TestReassemblerRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for n := MinPayloadLen; n <= MaxPayloadLen; n++ {
		payload := randomPayload(rnd, n)
		frame := mustEncode(t, payload)

		var whole frameCollector
		r := NewReassembler()
		require.Equal(t, 1, r.Feed(frame, &whole), "payload len %d", n)
		require.Equal(t, [][]byte{payload}, whole.payloads)
		require.Zero(t, r.Len())

		var bytewise frameCollector
		r = NewReassembler()
		// Arriving byte by byte, a frame above the reset threshold needs
		// KeepIncomplete.
		r.KeepIncomplete = len(frame) > DefaultResetThreshold
		require.Equal(t, 1, feedInChunks(r, frame, 1, &bytewise), "payload len %d", n)
		require.Equal(t, [][]byte{payload}, bytewise.payloads)
		require.Zero(t, r.Len())
	}
}

func TestReassemblerSplitArrival(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	var stream []byte
	var expect [][]byte
	stream = append(stream, noise(37)...)
	for _, n := range []int{MinPayloadLen, 20, 120, MaxPayloadLen, 9} {
		p := randomPayload(rnd, n)
		expect = append(expect, p)
		stream = append(stream, mustEncode(t, p)...)
		stream = append(stream, noise(rnd.Intn(50))...)
	}

	var whole frameCollector
	r := NewReassembler()
	r.KeepIncomplete = true
	require.Equal(t, len(expect), r.Feed(stream, &whole))
	require.Equal(t, expect, whole.payloads)

	for _, size := range []int{1, 2, 3, 7, 15, 64, 255, 256, 257, 1000} {
		var c frameCollector
		r := NewReassembler()
		r.KeepIncomplete = true
		require.Equal(t, len(expect), feedInChunks(r, stream, size, &c), "chunk size %d", size)
		require.Equal(t, whole.payloads, c.payloads, "chunk size %d", size)
	}
}

func TestReassemblerBackToBack(t *testing.T) {
	var c frameCollector
	a := []byte{0x85, 1, 0, 0, 0, 0, 0, 0}
	b := []byte{0x85, 2, 0, 0, 0, 0, 0, 0, 0}
	stream := append(mustEncode(t, a), mustEncode(t, b)...)
	r := NewReassembler()
	require.Equal(t, 2, r.Feed(stream, &c))
	require.Equal(t, [][]byte{a, b}, c.payloads)
	require.EqualValues(t, 2, r.Stats().Frames)
}

func TestReassemblerResync(t *testing.T) {
	payload := []byte{0x85, 0x50, 0x82, 0x01, 0x02, 0, 0, 0}
	frame := mustEncode(t, payload)

	testCases := []struct {
		name   string
		stream []byte
	}{
		{
			name:   "false positive overlapping frame",
			stream: append(append(noise(10), 0x5D, 0x47, 0x00, 0x09), frame...),
		},
		{
			name:   "false positive complete before frame",
			stream: append(append(noise(3), 0x5D, 0x47, 0x00, 0x09, 1, 2, 3, 4, 5, 6, 7, 0x78, 0xAA, 0xBB, 0xCC), frame...),
		},
		{
			name:   "oversized declared length",
			stream: append(append(noise(5), 0x5D, 0x47, 0xFF, 0xFF), frame...),
		},
		{
			name:   "lone first marker",
			stream: append([]byte{0x5D, 0x5D, 0x01}, frame...),
		},
		{
			name:   "corrupted frame then valid frame",
			stream: append(append(append([]byte(nil), frame[:len(frame)-1]...), frame[len(frame)-1]^0xFF), frame...),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, size := range []int{1, 4, len(tc.stream)} {
				var c frameCollector
				r := NewReassembler()
				require.Equal(t, 1, feedInChunks(r, tc.stream, size, &c), "chunk size %d", size)
				require.Equal(t, [][]byte{payload}, c.payloads)
				require.Zero(t, r.Len())
			}
		})
	}
}

func TestReassemblerRejectStats(t *testing.T) {
	frame := mustEncode(t, []byte{0x85, 0x50, 0, 0, 0, 0, 0, 0})
	bad := append([]byte(nil), frame...)
	bad[5] ^= 0xFF
	r := NewReassembler()
	require.Equal(t, 0, r.Feed(bad, nil))
	st := r.Stats()
	require.EqualValues(t, 1, st.Rejected)
	require.EqualValues(t, 1, st.ChecksumErrors)
	require.EqualValues(t, len(bad), st.Bytes)
	require.Equal(t, len(bad), r.Len())
}

func TestReassemblerWaitsForIncompleteFrame(t *testing.T) {
	frame := mustEncode(t, []byte{0x85, 0x50, 0, 0, 0, 0, 0, 0})
	var c frameCollector
	r := NewReassembler()
	require.Equal(t, 0, r.Feed(frame[:3], &c))
	require.Equal(t, 0, r.Feed(frame[3:10], &c))
	require.Equal(t, 10, r.Len())
	require.Equal(t, 1, r.Feed(frame[10:], &c))
	require.Len(t, c.payloads, 1)
}

func TestReassemblerOverflowReset(t *testing.T) {
	payload := []byte{0x85, 0x50, 0, 0, 0, 0, 0, 0}
	frame := mustEncode(t, payload)

	for _, size := range []int{1, 16, 250} {
		var c frameCollector
		r := NewReassembler()
		require.Equal(t, 0, feedInChunks(r, noise(250), size, &c))
		st := r.Stats()
		require.EqualValues(t, 1, st.Resets, "chunk size %d", size)
		require.True(t, r.Len() <= DefaultResetThreshold)

		require.Equal(t, 1, feedInChunks(r, frame, size, &c))
		require.Equal(t, [][]byte{payload}, c.payloads)
	}
}

func TestReassemblerResetDropsIncompleteFrame(t *testing.T) {
	stream := append(noise(190), StartMarker1, StartMarker2, 0x00, 0xC8)
	stream = append(stream, noise(20)...)
	r := NewReassembler()
	require.Zero(t, r.Feed(stream, nil))
	require.EqualValues(t, 1, r.Stats().Resets)
	require.Zero(t, r.Len())

	rnd := rand.New(rand.NewSource(11))
	payload := randomPayload(rnd, 230)
	stream = append(noise(150), mustEncode(t, payload)...)
	r = NewReassembler()
	require.Zero(t, feedInChunks(r, stream, 1, nil))
	require.NotZero(t, r.Stats().Resets)
}

func TestReassemblerKeepIncomplete(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	payload := randomPayload(rnd, 230)
	stream := append(noise(150), mustEncode(t, payload)...)
	var c frameCollector
	r := NewReassembler()
	r.KeepIncomplete = true
	require.Equal(t, 1, feedInChunks(r, stream, 1, &c))
	require.Equal(t, [][]byte{payload}, c.payloads)
	require.Zero(t, r.Stats().Resets)
	require.NotZero(t, r.Stats().Evicted)
}

func TestReassemblerCountsCandidatesOnce(t *testing.T) {
	r := NewReassembler()
	r.Feed([]byte{StartMarker1, StartMarker2, 0xFF, 0xFF}, nil)
	r.Feed(noise(5), nil)
	r.Feed(noise(5), nil)
	require.EqualValues(t, 1, r.Stats().Oversized)

	frame := mustEncode(t, []byte{0x85, 0x50, 0, 0, 0, 0, 0, 0})
	bad := append([]byte(nil), frame...)
	bad[5] ^= 0xFF
	r = NewReassembler()
	r.Feed(bad, nil)
	r.Feed(frame[:4], nil)
	var c frameCollector
	require.Equal(t, 1, r.Feed(frame[4:], &c))
	st := r.Stats()
	require.EqualValues(t, 1, st.Rejected)
	require.EqualValues(t, 1, st.ChecksumErrors)
	require.Len(t, c.payloads, 1)
}

func TestReassemblerSlidingEviction(t *testing.T) {
	r := NewReassembler()
	r.ResetThreshold = 0
	r.Feed(noise(300), nil)
	require.Equal(t, WindowSize, r.Len())
	require.EqualValues(t, 300-WindowSize, r.Stats().Evicted)

	payload := []byte{0x85, 0x50, 0, 0, 0, 0, 0, 0}
	var c frameCollector
	require.Equal(t, 1, r.Feed(mustEncode(t, payload), &c))
	require.Equal(t, [][]byte{payload}, c.payloads)
	require.Zero(t, r.Len())

	r.Feed(noise(10), nil)
	r.Reset()
	require.Zero(t, r.Len())
}
