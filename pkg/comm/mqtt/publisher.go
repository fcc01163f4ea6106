package mqtt

import (
	"context"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/ingest"
	"github.com/robotalks/evdash/pkg/input"
	"github.com/robotalks/evdash/pkg/msgs"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Sink is where the Publisher sends messages, Queue implements it.
type Sink interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// StatsFunc retrieves the current link stats.
type StatsFunc func() ingest.Stats

// Publisher forwards telemetry changes, link health and input faults
// of one vehicle to MQTT. It runs at PrLvPublish with its own Observer
// so a slow broker never delays the dashboard.
type Publisher struct {
	Queue          *Queue
	Sink           Sink
	Info           msgs.VehicleInfo
	Observer       *telemetry.Observer
	Stats          StatsFunc
	StatusInterval time.Duration
	PollTimeout    time.Duration

	lastStatus time.Time
	published  uint64
}

// Default intervals.
const (
	DefaultStatusInterval = 5 * time.Second
	DefaultPollTimeout    = 5 * time.Millisecond
)

// NewPublisher creates a Publisher connecting to brokerURL. The broker
// clears the retained meta when the connection is lost.
func NewPublisher(brokerURL string, store *telemetry.Store, info msgs.VehicleInfo) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	offline := info
	offline.Online = false
	will, err := msgs.Encode(&offline)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+VehicleTopic(info.VehicleID, KindMeta), will, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("evdash:" + info.VehicleID)
	}
	q := NewQueue(opts, topicPrefix)
	p := NewSinkPublisher(q, store, info)
	p.Queue = q
	q.OnConnect = func(*Queue) { p.publishInfo(true) }
	return p, nil
}

// NewSinkPublisher creates a Publisher on an arbitrary Sink.
func NewSinkPublisher(sink Sink, store *telemetry.Store, info msgs.VehicleInfo) *Publisher {
	return &Publisher{
		Sink:           sink,
		Info:           info,
		Observer:       store.Observe(),
		StatusInterval: DefaultStatusInterval,
		PollTimeout:    DefaultPollTimeout,
	}
}

// Name implements Named.
func (p *Publisher) Name() string {
	return "mqtt"
}

// AddToLoop implements LoopAdder.
func (p *Publisher) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvPublish, p)
}

// Run implements Runnable.
func (p *Publisher) Run(ctx context.Context) error {
	defer p.Observer.Close()
	if p.Queue != nil {
		p.Queue.Connect()
		defer p.Queue.Close()
	}
	ctl := fx.LoopCtlFrom(ctx)
	for {
		select {
		case <-ctx.Done():
			p.publishInfo(false).WaitTimeout(time.Second)
			return nil
		case <-p.Observer.Changed():
			ctl.TriggerNext()
		}
	}
}

// Control implements Controller.
func (p *Publisher) Control(cc fx.ControlContext) error {
	if p.Observer.Pending() {
		snapshot, changes, err := p.Observer.Poll(p.PollTimeout)
		switch {
		case err != nil:
			glog.V(2).Infof("telemetry publish deferred: %v", err)
		case !changes.Empty():
			p.publish(KindTelemetry, msgs.NewTelemetryUpdate(p.Info.VehicleID, snapshot, changes), false)
		}
	}
	if p.Stats != nil && p.StatusInterval > 0 {
		if now := cc.Time(); now.Sub(p.lastStatus) >= p.StatusInterval {
			p.lastStatus = now
			p.publish(KindLink, msgs.NewLinkStatus(p.Info.VehicleID, p.Stats()), true)
		}
	}
	return nil
}

// InputFaultChanged implements input.FaultNotifier.
func (p *Publisher) InputFaultChanged(f input.Fault) {
	p.publish(KindFault, msgs.NewInputFault(p.Info.VehicleID, f), true)
}

// Published returns the number of messages sent.
func (p *Publisher) Published() uint64 {
	return atomic.LoadUint64(&p.published)
}

func (p *Publisher) publishInfo(online bool) paho.Token {
	info := p.Info
	info.Online = online
	return p.publish(KindMeta, &info, true)
}

func (p *Publisher) publish(kind string, msg msgs.Message, retain bool) paho.Token {
	data, err := msgs.Encode(msg)
	if err != nil {
		glog.Errorf("encode %s: %v", kind, err)
		return &paho.DummyToken{}
	}
	var qos byte
	if retain {
		qos = 1
	}
	atomic.AddUint64(&p.published, 1)
	return p.Sink.PubWith(VehicleTopic(p.Info.VehicleID, kind), data, qos, retain)
}
