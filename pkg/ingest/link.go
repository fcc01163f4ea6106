package ingest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evdash/pkg/telemetry"
	"github.com/robotalks/evdash/pkg/wire"
)

// Source opens the raw byte stream of the link.
type Source interface {
	Open(context.Context) (io.ReadCloser, error)
}

// OpenFunc is func type of Source.
type OpenFunc func(context.Context) (io.ReadCloser, error)

// Open implements Source.
func (f OpenFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// ReaderSource serves a single already opened stream.
func ReaderSource(r io.ReadCloser) Source {
	var once sync.Once
	return OpenFunc(func(context.Context) (io.ReadCloser, error) {
		var rc io.ReadCloser
		once.Do(func() { rc = r })
		if rc == nil {
			return nil, io.EOF
		}
		return rc, nil
	})
}

// Stats reports the health of the link.
type Stats struct {
	Wire         wire.Stats
	Connected    bool
	Opens        uint64
	Updates      uint64
	LockTimeouts uint64
	DecodeErrors uint64
	LastFrame    time.Time
}

const (
	chunkBuffers = 4
)

type chunk struct {
	buf []byte
	n   int
}

// Link drains the raw stream, extracts frames and applies decoded
// fields to the Store. It never waits on the presentation side longer
// than the Store's lock timeout: an update not applied in time is
// merged into the next one.
type Link struct {
	Source        Source
	Store         *telemetry.Store
	Decoder       *telemetry.Decoder
	ReadSize      int
	RetryInterval time.Duration

	reassembler *wire.Reassembler
	update      telemetry.Update
	pending     telemetry.Update

	statsLock sync.Mutex
	stats     Stats
}

// NewLink creates a Link with defaults.
func NewLink(src Source, store *telemetry.Store) *Link {
	return &Link{
		Source:        src,
		Store:         store,
		Decoder:       telemetry.NewDecoder(telemetry.DefaultLayout),
		ReadSize:      defaultConfig.ReadSize,
		RetryInterval: defaultConfig.RetryInterval,
		reassembler:   wire.NewReassembler(),
	}
}

// Name implements Named.
func (l *Link) Name() string {
	return "link"
}

// Reassembler exposes the frame extractor for tuning before Run.
func (l *Link) Reassembler() *wire.Reassembler {
	return l.reassembler
}

// Stats returns a copy of the counters.
func (l *Link) Stats() Stats {
	l.statsLock.Lock()
	defer l.statsLock.Unlock()
	return l.stats
}

// Run implements Runnable. It reopens the source after failures when
// RetryInterval is positive, otherwise it returns when the stream ends.
func (l *Link) Run(ctx context.Context) error {
	for {
		rc, err := l.Source.Open(ctx)
		if err == nil {
			l.setConnected(true)
			err = l.stream(ctx, rc)
			l.setConnected(false)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if l.RetryInterval <= 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		glog.Warningf("link interrupted: %v, retry in %s", err, l.RetryInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.RetryInterval):
		}
	}
}

func (l *Link) stream(ctx context.Context, rc io.ReadCloser) error {
	defer rc.Close()
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	size := l.ReadSize
	if size <= 0 {
		size = wire.WindowSize
	}
	freeCh := make(chan []byte, chunkBuffers)
	for i := 0; i < chunkBuffers; i++ {
		freeCh <- make([]byte, size)
	}
	chunkCh, errCh := make(chan chunk), make(chan error, 1)
	go l.readLoop(subCtx, rc, freeCh, chunkCh, errCh)

	var retry *time.Timer
	var retryCh <-chan time.Time
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()
	for {
		if retryCh == nil && !l.pending.Changes.Empty() {
			if retry != nil {
				retry.Stop()
			}
			retry = time.NewTimer(l.retryDelay())
			retryCh = retry.C
		}
		select {
		case c := <-chunkCh:
			l.ingest(c.buf[:c.n])
			freeCh <- c.buf
		case <-retryCh:
			retryCh = nil
			l.applyPending()
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) readLoop(ctx context.Context, r io.Reader, freeCh chan []byte, chunkCh chan chunk, errCh chan error) {
	for {
		var buf []byte
		select {
		case <-ctx.Done():
			return
		case buf = <-freeCh:
		}
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- chunk{buf: buf, n: n}:
			case <-ctx.Done():
				return
			}
		} else {
			freeCh <- buf
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (l *Link) ingest(p []byte) {
	l.reassembler.Feed(p, l)
	wireStats := l.reassembler.Stats()
	l.statsLock.Lock()
	l.stats.Wire = wireStats
	l.statsLock.Unlock()
}

// HandleFrame implements wire.FrameHandler.
func (l *Link) HandleFrame(f wire.Frame) {
	u := &l.update
	u.Reset()
	if err := l.Decoder.Decode(f.Payload(), u); err != nil {
		l.countDecodeError(err)
	}
	l.statsLock.Lock()
	l.stats.LastFrame = time.Now()
	l.statsLock.Unlock()
	if !l.pending.Changes.Empty() {
		l.pending.Merge(u)
		l.applyPending()
		return
	}
	if l.apply(u) != nil {
		l.pending.Merge(u)
	}
}

// applyPending retries the deferred update. It runs on the next frame
// or when the retry timer fires while the link is quiet.
func (l *Link) applyPending() {
	if l.pending.Changes.Empty() {
		return
	}
	if l.apply(&l.pending) == nil {
		l.pending.Reset()
	}
}

func (l *Link) apply(u *telemetry.Update) error {
	err := l.Store.Apply(u)
	l.statsLock.Lock()
	if err != nil {
		l.stats.LockTimeouts++
	} else {
		l.stats.Updates++
	}
	l.statsLock.Unlock()
	if err != nil {
		glog.V(1).Infof("update %s deferred: %v", u.Changes, err)
	}
	return err
}

func (l *Link) retryDelay() time.Duration {
	if d := l.Store.LockTimeout; d > time.Millisecond {
		return d
	}
	return time.Millisecond
}

func (l *Link) countDecodeError(err error) {
	glog.V(2).Infof("decode: %v", err)
	l.statsLock.Lock()
	l.stats.DecodeErrors++
	l.statsLock.Unlock()
}

func (l *Link) setConnected(connected bool) {
	l.statsLock.Lock()
	l.stats.Connected = connected
	if connected {
		l.stats.Opens++
	}
	l.statsLock.Unlock()
}
