package input

import (
	"context"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/input/device"
)

// Opener opens the touch device.
type Opener func() (device.Device, error)

// Transform maps raw panel coordinates to screen coordinates.
type Transform func(device.Touch) device.Touch

// Rotate90 maps a panel mounted in portrait onto a landscape screen of
// the given width.
func Rotate90(width int) Transform {
	return func(t device.Touch) device.Touch {
		t.X, t.Y = width-t.Y, t.X
		return t
	}
}

// Reader feeds touch reports from the device into the Guard. The
// device is reopened when it fails.
type Reader struct {
	Open          Opener
	Guard         *Guard
	Transform     Transform
	RetryInterval time.Duration
	Verbose       bool
}

// Name implements Named.
func (r *Reader) Name() string {
	return "input"
}

// Run implements Runnable.
func (r *Reader) Run(ctx context.Context) error {
	retry := time.After(0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-retry:
		}
		dev, err := r.Open()
		if err != nil || dev == nil {
			glog.V(1).Infof("touch device not available: %v", err)
			retry = time.After(r.RetryInterval)
			continue
		}
		glog.Infof("touch device %s %q opened", dev.Path(), dev.Name())
		err = fx.RunWithContextCloser(ctx, dev, func() error {
			return r.poll(ctx, dev)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		glog.Warningf("touch device %s read error: %v", dev.Path(), err)
		retry = time.After(r.RetryInterval)
	}
}

func (r *Reader) poll(ctx context.Context, dev device.Device) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	for {
		t, err := dev.ReadTouch()
		if err != nil {
			return err
		}
		if r.Transform != nil {
			t = r.Transform(t)
		}
		if r.Verbose {
			glog.Infof("touch (%d,%d) pressed=%v", t.X, t.Y, t.Pressed)
		}
		if err := r.Guard.Post(t); err != nil {
			glog.V(1).Infof("touch dropped: %v", err)
			continue
		}
		loopCtl.TriggerNext()
	}
}
