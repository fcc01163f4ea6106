package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/evdash/pkg/comm/websocket"
	"github.com/robotalks/evdash/pkg/dash"
	"github.com/robotalks/evdash/pkg/env"
	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/ingest"
	"github.com/robotalks/evdash/pkg/input"
	"github.com/robotalks/evdash/pkg/input/device"
	"github.com/robotalks/evdash/pkg/sim"
	"github.com/robotalks/evdash/pkg/telemetry"
	"github.com/robotalks/evdash/pkg/uart"
)

var useSim bool

func init() {
	flag.BoolVar(&useSim, "sim", useSim, "Ingest frames from the built-in simulator instead of the serial port")
	env.SetupFlags()
	uart.SetupFlags()
	ingest.SetupFlags()
	dash.SetupFlags()
	websocket.SetupFlags()
	input.SetupFlags()
	sim.SetupFlags()
}

func main() {
	flag.Parse()

	ingestConf := ingest.Default()
	layout, err := ingest.ParseLayout(ingestConf.Layout)
	if err != nil {
		glog.Exit(err)
	}

	var src ingest.Source
	source := uart.Default().Port
	if useSim {
		s, err := sim.Default().NewSim(layout)
		if err != nil {
			glog.Exit(err)
		}
		src, source = s, s.Name()
	} else {
		src = uart.Default()
	}

	store := telemetry.NewStore()
	link, err := ingestConf.NewLink(src, store)
	if err != nil {
		glog.Exit(err)
	}

	dashConf := dash.Default()
	loop := fx.NewLoop()
	loop.Interval = dashConf.Refresh
	loop.AddRunnable(link)
	loop.Add(dashConf.NewAdapter(store))
	if r := ingestConf.NewReporter(link); r != nil {
		loop.Add(r)
	}

	var notifier input.FaultNotifier
	pub, err := env.Default().NewPublisher(store, env.Default().Info(source, ingestConf.Layout))
	if err != nil {
		glog.Exit(err)
	}
	if pub != nil {
		pub.Stats = link.Stats
		loop.Add(pub)
		notifier = pub
	}
	if ws := websocket.Default().NewServer(store); ws != nil {
		loop.AddRunnable(ws)
	}
	if inputConf := input.Default(); inputConf.Enabled {
		loop.Add(inputConf.New(input.HandleTouchFunc(func(cc fx.ControlContext, t device.Touch) {
			glog.V(1).Infof("touch (%d,%d) pressed=%v", t.X, t.Y, t.Pressed)
		}), notifier))
	}

	loop.RunOrFail(fx.NewRunner().HandleSignals().Context)
}
