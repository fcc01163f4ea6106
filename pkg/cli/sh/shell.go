package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/evdash/pkg/cli/view"
	"github.com/robotalks/evdash/pkg/comm/mqtt"
	"github.com/robotalks/evdash/pkg/env"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoSelect  bool

	Shell   *ishell.Shell
	Config  *env.Config
	Monitor *mqtt.Monitor
	Vehicle *view.Vehicle

	cancel func()

	watchLock sync.Mutex
	watch     func(*telemetry.State, telemetry.ChangeSet)
}

const (
	shellKey         = "$shell"
	unselectedPrompt = "[none] > "

	defaultWatchDuration = 10 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	vehicleID  string

	// commands
	commands = []*ishell.Cmd{
		&VehiclesCmd,
		&UseCmd,
		&LeaveCmd,
		&ShowCmd,
		&LinkCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&vehicleID, "vehicle", vehicleID, "Vehicle to use on start.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unselectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeSelected wraps command func requires a selected vehicle.
func MustBeSelected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Vehicle == nil {
			c.Err(fmt.Errorf("no vehicle selected"))
			return
		}
		fn(c)
	}
}

// WithAutoSelect sets AutoSelect.
func (s *Shell) WithAutoSelect(en bool) *Shell {
	s.AutoSelect = en
	return s
}

func (s *Shell) monitor() (*mqtt.Monitor, error) {
	if s.Monitor == nil {
		m, err := s.Config.NewMonitor()
		if err != nil {
			return nil, err
		}
		s.Monitor = m
	}
	return s.Monitor, nil
}

// Discover lists online vehicles.
func (s *Shell) Discover() ([]string, error) {
	m, err := s.monitor()
	if err != nil {
		return nil, err
	}
	infoList, err := m.Discover(context.TODO())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infoList))
	for _, info := range infoList {
		ids = append(ids, info.VehicleID)
	}
	return ids, nil
}

// SelectVehicle discovers vehicles and asks for a choice.
func (s *Shell) SelectVehicle() (string, error) {
	ids, err := s.Discover()
	if err != nil || len(ids) == 0 {
		return "", err
	}
	if len(ids) == 1 {
		return ids[0], nil
	}
	if !s.Interactive {
		return "", fmt.Errorf("more than 1 vehicles discovered in non-interactive mode")
	}
	return ids[s.Shell.MultiChoice(ids, "Which one to use?")], nil
}

// Use starts watching the vehicle.
func (s *Shell) Use(id string) error {
	m, err := s.monitor()
	if err != nil {
		return err
	}
	s.Leave()
	v := view.New(id)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		err := m.Watch(ctx, id, func(ev mqtt.Event) {
			if changes := v.Apply(ev); !changes.Empty() {
				s.notifyWatch(v, changes)
			}
		})
		if err != nil && err != context.Canceled {
			s.Shell.Printf("watch %s stopped: %v\n", id, err)
		}
	}()
	s.Vehicle, s.cancel = v, cancel
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", id))
	return nil
}

// Leave stops watching the current vehicle.
func (s *Shell) Leave() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.Vehicle = nil
	s.Shell.SetPrompt(unselectedPrompt)
}

func (s *Shell) notifyWatch(v *view.Vehicle, changes telemetry.ChangeSet) {
	s.watchLock.Lock()
	defer s.watchLock.Unlock()
	if s.watch != nil {
		state, _, _ := v.State()
		s.watch(&state, changes)
	}
}

func (s *Shell) setWatch(fn func(*telemetry.State, telemetry.ChangeSet)) {
	s.watchLock.Lock()
	s.watch = fn
	s.watchLock.Unlock()
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoSelect && vehicleID != "" {
		if err := s.Use(vehicleID); err != nil {
			log.Fatalf("use %q failed: %v", vehicleID, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

type shellWriter struct {
	shell *ishell.Shell
}

func (w shellWriter) Write(p []byte) (int, error) {
	w.shell.Print(string(p))
	return len(p), nil
}

func (s *Shell) output() io.Writer {
	return shellWriter{shell: s.Shell}
}

func (s *Shell) printJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

var (
	// VehiclesCmd discovers vehicles.
	VehiclesCmd = ishell.Cmd{
		Name:    "vehicles",
		Aliases: []string{"list", "l"},
		Help:    "list online vehicles",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ids, err := s.Discover()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if ids == nil {
					ids = []string{}
				}
				s.printJSON(c, ids)
				return
			}
			if len(ids) == 0 {
				c.Println("No vehicles found")
				return
			}
			for _, id := range ids {
				c.Println(id)
			}
		},
	}

	// UseCmd selects a vehicle.
	UseCmd = ishell.Cmd{
		Name:    "use",
		Aliases: []string{"u"},
		Help:    "[ID] select a vehicle",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var id string
			if len(c.Args) > 0 {
				id = c.Args[0]
			} else {
				var err error
				if id, err = s.SelectVehicle(); err != nil {
					c.Err(err)
					return
				}
				if id == "" {
					c.Err(fmt.Errorf("no vehicle discovered"))
					return
				}
			}
			if err := s.Use(id); err != nil {
				c.Err(err)
			}
		},
	}

	// LeaveCmd stops watching the current vehicle.
	LeaveCmd = ishell.Cmd{
		Name:    "leave",
		Aliases: []string{"d"},
		Help:    "stop watching the vehicle",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Leave()
		},
	}

	// ShowCmd prints the last known telemetry.
	ShowCmd = ishell.Cmd{
		Name:    "show",
		Aliases: []string{"s"},
		Help:    "print the last known telemetry",
		Func: MustBeSelected(func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.OutputJSON {
				state, _, _ := s.Vehicle.State()
				s.printJSON(c, &state)
				return
			}
			s.Vehicle.PrintState(s.output())
		}),
	}

	// LinkCmd prints the link health.
	LinkCmd = ishell.Cmd{
		Name: "link",
		Help: "print the serial link health",
		Func: MustBeSelected(func(c *ishell.Context) {
			s := ShellFrom(c)
			s.Vehicle.PrintLink(s.output())
		}),
	}

	// WatchCmd prints changes as they arrive.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[DURATION] print changes as they arrive",
		Func: MustBeSelected(func(c *ishell.Context) {
			s := ShellFrom(c)
			dur := defaultWatchDuration
			if len(c.Args) > 0 {
				var err error
				if dur, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			s.setWatch(func(state *telemetry.State, changes telemetry.ChangeSet) {
				view.PrintFields(s.output(), state, changes)
			})
			time.Sleep(dur)
			s.setWatch(nil)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoSelect(true).Run(flag.Args()...)
}
