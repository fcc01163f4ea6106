package framework

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type triggerRunner struct {
	triggered chan struct{}
}

func (r *triggerRunner) Run(ctx context.Context) error {
	LoopCtlFrom(ctx).TriggerNext()
	close(r.triggered)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRunsControllersInPriorityOrder(t *testing.T) {
	var order []int
	done := make(chan struct{})
	var count int32
	loop := NewLoop()
	loop.Interval = time.Hour
	loop.AddController(PrLvPublish, ControlFunc(func(cc ControlContext) error {
		order = append(order, cc.PriorityLevel())
		if atomic.AddInt32(&count, 1) == 1 {
			close(done)
		}
		return nil
	}))
	loop.AddController(PrLvRender, ControlFunc(func(cc ControlContext) error {
		order = append(order, cc.PriorityLevel())
		return nil
	}))
	runner := &triggerRunner{triggered: make(chan struct{})}
	loop.AddRunnable(runner)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop iteration not triggered")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	require.Equal(t, []int{PrLvRender, PrLvPublish}, order[:2])
}

func TestLoopCtlFromPlainContext(t *testing.T) {
	require.NotPanics(t, func() {
		LoopCtlFrom(context.Background()).TriggerNext()
	})
}
