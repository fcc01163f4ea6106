package input

import (
	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/input/device"
)

// Handler receives touch states on the loop.
type Handler interface {
	HandleTouch(fx.ControlContext, device.Touch)
}

// HandleTouchFunc is func type of Handler.
type HandleTouchFunc func(fx.ControlContext, device.Touch)

// HandleTouch implements Handler.
func (f HandleTouchFunc) HandleTouch(cc fx.ControlContext, t device.Touch) {
	f(cc, t)
}

// Sampler takes the latest touch state from the Guard once per loop
// iteration.
type Sampler struct {
	Guard   *Guard
	Handler Handler
}

// AddToLoop implements LoopAdder.
func (s *Sampler) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvInput, s)
}

// Control implements Controller.
func (s *Sampler) Control(cc fx.ControlContext) error {
	if t, ok := s.Guard.Take(); ok && s.Handler != nil {
		s.Handler.HandleTouch(cc, t)
	}
	return nil
}
