package env

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/evdash/pkg/telemetry"
)

func TestNewPublisher(t *testing.T) {
	conf := NewConfig()
	conf.Publish = false
	p, err := conf.NewPublisher(telemetry.NewStore(), conf.Info("sim", "default"))
	require.NoError(t, err)
	require.Nil(t, p)

	conf.Publish = true
	conf.VehicleID = ""
	_, err = conf.NewPublisher(telemetry.NewStore(), conf.Info("sim", "default"))
	require.Error(t, err)

	conf.VehicleID = "car-1"
	conf.MQTTBrokerURL = "mqtt://localhost:1883/evdash/"
	p, err = conf.NewPublisher(telemetry.NewStore(), conf.Info("sim", "controller"))
	require.NoError(t, err)
	require.Equal(t, "car-1", p.Info.VehicleID)
	require.True(t, p.Info.Online)
	require.Equal(t, "controller", p.Info.Layout)
	require.Equal(t, "evdash/", p.Queue.TopicPrefix)
	require.Equal(t, conf.StatusInterval, p.StatusInterval)
}
