package framework

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type runFunc func(context.Context) error

func (f runFunc) Run(ctx context.Context) error { return f(ctx) }

type namedRunner struct {
	runFunc
	name string
}

func (r namedRunner) Name() string { return r.name }

func TestRunnerWait(t *testing.T) {
	failure := errors.New("port gone")
	testCases := []struct {
		name    string
		runners []Runnable
		err     string
	}{
		{
			name: "canceled",
			runners: []Runnable{
				runFunc(func(ctx context.Context) error { return context.Canceled }),
			},
		},
		{
			name: "named failure",
			runners: []Runnable{
				namedRunner{name: "link", runFunc: func(ctx context.Context) error { return failure }},
				runFunc(func(ctx context.Context) error { return nil }),
			},
			err: "link: port gone",
		},
		{
			name: "multiple",
			runners: []Runnable{
				namedRunner{name: "a", runFunc: func(ctx context.Context) error { return failure }},
				namedRunner{name: "a", runFunc: func(ctx context.Context) error { return failure }},
			},
			err: "Multiple errors:\na: port gone\na: port gone",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewRunner().Go(tc.runners...).Wait()
			if tc.err == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tc.err)
		})
	}
}

type closer struct {
	closed chan struct{}
}

func (c *closer) Close() error {
	close(c.closed)
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	c := &closer{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond)
		cancel()
	}()
	err := RunWithContextCloser(ctx, c, func() error {
		<-c.closed
		return io.EOF
	})
	require.Equal(t, context.Canceled, err)

	c = &closer{closed: make(chan struct{})}
	err = RunWithContextCloser(context.Background(), c, func() error { return io.EOF })
	require.Equal(t, io.EOF, err)
	select {
	case <-c.closed:
	default:
		t.Fatal("not closed on exit")
	}
}
