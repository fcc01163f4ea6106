package mqtt

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/evdash/pkg/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Monitor subscribes to vehicles published on a broker.
type Monitor struct {
	Queue           *Queue
	DiscoverTimeout time.Duration
}

// NewMonitor creates a Monitor from broker URL.
func NewMonitor(brokerURL string) (*Monitor, error) {
	q, err := NewQueueFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Monitor{Queue: q, DiscoverTimeout: DefaultDiscoverTimeout}, nil
}

// Connect connects to the broker.
func (m *Monitor) Connect() error {
	token := m.Queue.Connect()
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (m *Monitor) Close() error {
	return m.Queue.Close()
}

// Discover collects the retained meta of online vehicles.
func (m *Monitor) Discover(ctx context.Context) (res []*msgs.VehicleInfo, err error) {
	resCh := make(chan *msgs.VehicleInfo, 1)
	sub := m.Queue.Sub(VehicleTopic("+", KindMeta), func(topic string, payload []byte) {
		info := decodeInfo(topic, payload)
		if info == nil || !info.Online {
			return
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	})
	defer sub.Close()

	dur := m.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Event is a decoded message from a vehicle topic.
type Event struct {
	VehicleID string
	Kind      string
	Message   msgs.Message
}

// Watch delivers decoded messages of a vehicle, or all vehicles if
// vehicleID is empty, until ctx is done.
func (m *Monitor) Watch(ctx context.Context, vehicleID string, handler func(Event)) error {
	if vehicleID == "" {
		vehicleID = "+"
	}
	sub := m.Queue.Sub(TopicRoot+"/"+vehicleID+"/+", func(topic string, payload []byte) {
		id, kind, ok := ParseVehicleTopic(topic)
		if !ok || len(payload) == 0 {
			return
		}
		msg, err := msgs.Decode(payload)
		if err != nil {
			glog.V(1).Infof("%s: %v", topic, err)
			return
		}
		handler(Event{VehicleID: id, Kind: kind, Message: msg})
	})
	defer sub.Close()
	if sub.Token.Wait(); sub.Token.Error() != nil {
		return sub.Token.Error()
	}
	<-ctx.Done()
	return ctx.Err()
}

func decodeInfo(topic string, payload []byte) *msgs.VehicleInfo {
	id, _, ok := ParseVehicleTopic(topic)
	if !ok || len(payload) == 0 {
		return nil
	}
	msg, err := msgs.Decode(payload)
	if err != nil {
		return nil
	}
	info, ok := msg.(*msgs.VehicleInfo)
	if !ok {
		return nil
	}
	if info.VehicleID == "" {
		info.VehicleID = id
	}
	return info
}
