package main

import (
	"flag"
	"log"

	"github.com/robotalks/evdash/pkg/comm/mqtt"
	"github.com/robotalks/evdash/pkg/env"
	fx "github.com/robotalks/evdash/pkg/framework"
)

var vehicleID string

func init() {
	flag.StringVar(&vehicleID, "vehicle", vehicleID, "Vehicle to monitor, empty for all")
	env.SetupFlags()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	m, err := env.Default().NewMonitor()
	if err != nil {
		log.Fatalln(err)
	}
	defer m.Close()

	ctx := fx.NewRunner().HandleSignals().Context
	err = m.Watch(ctx, vehicleID, func(ev mqtt.Event) {
		log.Printf("%s/%s: %s", ev.VehicleID, ev.Kind, ev.Message.String())
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalln(err)
	}
}
