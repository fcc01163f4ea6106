package wire

import (
	"encoding/binary"

	"github.com/golang/glog"
)

// FrameHandler is called for every validated frame.
type FrameHandler interface {
	HandleFrame(Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(frame Frame) {
	f(frame)
}

// DefaultResetThreshold is the fill level above which a window that
// yields nothing is discarded.
const DefaultResetThreshold = 200

// Stats counts what happened to the bytes fed into a Reassembler.
type Stats struct {
	Bytes uint64
	// Frames is the number of frames extracted.
	Frames uint64
	// Rejected is the number of start marker matches which failed validation.
	Rejected uint64
	// ChecksumErrors is the subset of Rejected failing only on CRC.
	ChecksumErrors uint64
	// Oversized is the number of start marker matches declaring a frame
	// longer than the window.
	Oversized uint64
	// Resets is the number of times the window was discarded.
	Resets uint64
	// Evicted is the number of bytes pushed out of a full window.
	Evicted uint64
}

// Reassembler extracts frames from a raw byte stream using a fixed
// window. It never blocks and never grows: when the window is full the
// oldest bytes are evicted.
//
// A scan that extracts nothing with more than ResetThreshold bytes held
// discards the whole window, including a partially received frame.
type Reassembler struct {
	// ResetThreshold disables the reset when <= 0.
	ResetThreshold int
	// KeepIncomplete skips the reset while a start marker is still
	// awaiting the bytes of a frame that fits the window.
	KeepIncomplete bool

	buf   [WindowSize]byte
	n     int
	stats Stats
	// checked is the window offset below which every start marker was
	// already counted as rejected or oversized.
	checked int
}

// NewReassembler creates a Reassembler with defaults.
func NewReassembler() *Reassembler {
	return &Reassembler{ResetThreshold: DefaultResetThreshold}
}

// Len returns the number of bytes held in the window.
func (r *Reassembler) Len() int {
	return r.n
}

// Stats returns the counters.
func (r *Reassembler) Stats() Stats {
	return r.stats
}

// Reset discards the window.
func (r *Reassembler) Reset() {
	r.n, r.checked = 0, 0
}

// Feed appends bytes and hands every frame found to h, in stream order.
// It returns the number of frames extracted.
func (r *Reassembler) Feed(p []byte, h FrameHandler) (frames int) {
	r.stats.Bytes += uint64(len(p))
	for len(p) > 0 {
		// Never append more than the free space before scanning, so the
		// result doesn't depend on how the stream was chunked.
		chunk := len(p)
		if room := len(r.buf) - r.n; room == 0 {
			chunk = 1
		} else if chunk > room {
			chunk = room
		}
		r.append(p[:chunk])
		p = p[chunk:]
		frames += r.scan(h)
	}
	return
}

func (r *Reassembler) append(p []byte) {
	if over := r.n + len(p) - len(r.buf); over > 0 {
		if over > r.n {
			p = p[over-r.n:]
			r.stats.Evicted += uint64(over - r.n)
			over = r.n
		}
		r.consume(over)
		r.stats.Evicted += uint64(over)
	}
	r.n += copy(r.buf[r.n:], p)
}

func (r *Reassembler) consume(count int) {
	r.n = copy(r.buf[:], r.buf[count:r.n])
	if r.checked -= count; r.checked < 0 {
		r.checked = 0
	}
}

func (r *Reassembler) scan(h FrameHandler) (frames int) {
	for {
		found, waiting := r.extract(h)
		if found {
			frames++
			continue
		}
		if r.ResetThreshold > 0 && r.n > r.ResetThreshold && !(waiting && r.KeepIncomplete) {
			glog.Warningf("reassembly window holds %d bytes without a frame, discarded", r.n)
			r.stats.Resets++
			r.Reset()
		}
		return
	}
}

// extract scans the window from the start and extracts the first valid
// frame. When nothing is extracted, waiting reports whether a candidate
// is still incomplete.
func (r *Reassembler) extract(h FrameHandler) (found, waiting bool) {
	for i := 0; i < r.n; i++ {
		if r.buf[i] != StartMarker1 {
			continue
		}
		if i+1 >= r.n {
			return false, true
		}
		if r.buf[i+1] != StartMarker2 {
			continue
		}
		if i+3 >= r.n {
			return false, true
		}
		total := int(binary.BigEndian.Uint16(r.buf[i+2:])) + FrameOverhead
		if total > len(r.buf) {
			if r.firstCheck(i) {
				r.stats.Oversized++
			}
			continue
		}
		if i+total > r.n {
			return false, true
		}
		candidate := r.buf[i : i+total]
		if err := Check(candidate); err != nil {
			if r.firstCheck(i) {
				r.stats.Rejected++
				if err == ErrChecksum {
					r.stats.ChecksumErrors++
				}
				glog.V(3).Infof("candidate at %d rejected: %v", i, err)
			}
			continue
		}
		r.stats.Frames++
		if h != nil {
			h.HandleFrame(Frame(candidate))
		}
		r.consume(i + total)
		return true, false
	}
	return false, false
}

// firstCheck reports whether the marker at offset i is classified for
// the first time. Later scans revisit it while a frame behind it is
// incomplete.
func (r *Reassembler) firstCheck(i int) bool {
	if i < r.checked {
		return false
	}
	r.checked = i + 1
	return true
}
