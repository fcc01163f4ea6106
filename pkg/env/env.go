// Package env provides the vehicle identity and broker settings shared
// by the binaries.
package env

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/evdash/pkg/comm/mqtt"
	"github.com/robotalks/evdash/pkg/msgs"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// AppID scopes the protected machine ID so it differs from other apps
// on the same host.
const AppID = "evdash"

// MachineID retrieves the unique ID identifying the machine.
func MachineID() (string, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", err
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id, nil
}

// Config provides the common options of the binaries.
type Config struct {
	VehicleID string
	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL  string
	Publish        bool
	StatusInterval time.Duration
}

var defaultConfig = Config{
	MQTTBrokerURL:  "mqtt://localhost:1883/evdash/",
	StatusInterval: mqtt.DefaultStatusInterval,
}

func init() {
	if val := os.Getenv("EVDASH_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
		defaultConfig.Publish = true
	}
	if val := os.Getenv("EVDASH_VEHICLE_ID"); val != "" {
		defaultConfig.VehicleID = val
	} else if id, err := MachineID(); err == nil {
		defaultConfig.VehicleID = id
	} else if host, err := os.Hostname(); err == nil {
		defaultConfig.VehicleID = host
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.VehicleID, "id", defaultConfig.VehicleID, "Vehicle ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.BoolVar(&defaultConfig.Publish, "publish", defaultConfig.Publish, "Publish telemetry to the MQTT broker")
	flag.DurationVar(&defaultConfig.StatusInterval, "status-interval", defaultConfig.StatusInterval, "Interval of link status messages")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Info creates the VehicleInfo announced by the publisher.
func (c *Config) Info(source, layout string) msgs.VehicleInfo {
	return msgs.VehicleInfo{
		VehicleID: c.VehicleID,
		Online:    true,
		Source:    source,
		Layout:    layout,
		StartedMs: time.Now().UnixNano() / int64(time.Millisecond),
	}
}

// NewPublisher creates the MQTT publisher, or nil if publishing is
// disabled.
func (c *Config) NewPublisher(store *telemetry.Store, info msgs.VehicleInfo) (*mqtt.Publisher, error) {
	if !c.Publish {
		return nil, nil
	}
	if info.VehicleID == "" {
		return nil, fmt.Errorf("vehicle ID must be specified")
	}
	p, err := mqtt.NewPublisher(c.MQTTBrokerURL, store, info)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT broker URL: %v", err)
	}
	p.StatusInterval = c.StatusInterval
	glog.Infof("publishing %s to %s", info.VehicleID, c.MQTTBrokerURL)
	return p, nil
}

// NewMonitor creates and connects an MQTT monitor.
func (c *Config) NewMonitor() (*mqtt.Monitor, error) {
	m, err := mqtt.NewMonitor(c.MQTTBrokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT broker URL: %v", err)
	}
	if err := m.Connect(); err != nil {
		return nil, err
	}
	return m, nil
}
