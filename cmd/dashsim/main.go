package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"io"
	"os"

	"github.com/golang/glog"

	fx "github.com/robotalks/evdash/pkg/framework"
	"github.com/robotalks/evdash/pkg/ingest"
	"github.com/robotalks/evdash/pkg/sim"
	"github.com/robotalks/evdash/pkg/uart"
)

var toStdout bool

func init() {
	flag.BoolVar(&toStdout, "stdout", toStdout, "Write frames to stdout instead of the serial port")
	uart.SetupFlags()
	ingest.SetupFlags()
	sim.SetupFlags()
}

func main() {
	flag.Parse()

	layout, err := ingest.ParseLayout(ingest.Default().Layout)
	if err != nil {
		glog.Exit(err)
	}
	s, err := sim.Default().NewSim(layout)
	if err != nil {
		glog.Exit(err)
	}

	var w io.Writer = os.Stdout
	if !toStdout {
		port, err := uart.Default().OpenPort()
		if err != nil {
			glog.Exit(err)
		}
		defer port.Close()
		w = port
	}

	ctx := fx.NewRunner().HandleSignals().Context
	if err := s.WriteTo(ctx, w); err != nil && ctx.Err() == nil {
		glog.Errorf("stopped: %v", err)
	}
	st := s.Generator.Stats()
	glog.Infof("%d frames, %d garbage, %d false starts, %d corrupted",
		st.Frames, st.Garbage, st.FalseStarts, st.Corrupted)
}
