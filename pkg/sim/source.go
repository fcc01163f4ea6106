package sim

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"
)

// Sim emits the generated byte stream at a fixed frame rate.
type Sim struct {
	Generator *Generator
	Interval  time.Duration
	// ChunkSize splits writes to mimic a UART delivering bytes in
	// small bursts, 0 writes whole frames.
	ChunkSize int
}

// Name implements Named.
func (s *Sim) Name() string {
	return "sim"
}

// WriteTo writes frames to w until ctx is done or a write fails.
func (s *Sim) WriteTo(ctx context.Context, w io.Writer) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			data, err := s.Generator.Next(now)
			if err != nil {
				return err
			}
			if err := s.write(w, data); err != nil {
				return err
			}
		}
	}
}

func (s *Sim) write(w io.Writer, data []byte) error {
	size := s.ChunkSize
	if size <= 0 {
		size = len(data)
	}
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		if _, err := w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Open implements ingest.Source. The stream runs until ctx is done or
// the reader is closed.
func (s *Sim) Open(ctx context.Context) (io.ReadCloser, error) {
	r, w := io.Pipe()
	go func() {
		err := s.WriteTo(ctx, w)
		glog.V(1).Infof("sim stream stopped: %v", err)
		w.CloseWithError(err)
	}()
	return r, nil
}
