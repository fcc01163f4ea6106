// Package websocket streams telemetry changes to browsers as JSON.
package websocket

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/evdash/pkg/dash"
	"github.com/robotalks/evdash/pkg/telemetry"
)

// Message is sent to clients. The first message after connecting is a
// reset carrying every field, followed by updates with changed fields.
type Message struct {
	Action string       `json:"action"`
	Change *dash.Change `json:"change,omitempty"`
}

// Actions
const (
	ActionReset  = "reset"
	ActionUpdate = "update"
)

// Server serves a telemetry stream on a websocket endpoint. Each client
// gets its own Observer so a slow client only delays itself.
type Server struct {
	Addr        string
	Path        string
	Store       *telemetry.Store
	PollTimeout time.Duration
	// MinInterval throttles updates sent to a client.
	MinInterval time.Duration

	clients int32
}

// NewServer creates a Server.
func NewServer(addr string, store *telemetry.Store) *Server {
	return &Server{
		Addr:        addr,
		Path:        defaultConfig.Path,
		Store:       store,
		PollTimeout: defaultConfig.PollTimeout,
		MinInterval: defaultConfig.MinInterval,
	}
}

// Name implements Named.
func (s *Server) Name() string {
	return "websocket"
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return int(atomic.LoadInt32(&s.clients))
}

// Handler returns the websocket handler.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(s.serve)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(s.Path, s.Handler())
	srv := &http.Server{
		Addr:        s.Addr,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("websocket listening on %s%s", s.Addr, s.Path)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		srv.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) serve(conn *websocket.Conn) {
	defer conn.Close()
	atomic.AddInt32(&s.clients, 1)
	defer atomic.AddInt32(&s.clients, -1)

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()
	go func() {
		// Clients don't send anything, a read error means they are gone.
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
		cancel()
	}()

	remote := conn.Request().RemoteAddr
	glog.V(1).Infof("websocket client %s connected", remote)
	if err := s.stream(ctx, conn); err != nil && err != context.Canceled {
		glog.V(1).Infof("websocket client %s: %v", remote, err)
	}
	glog.V(1).Infof("websocket client %s disconnected", remote)
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn) error {
	o := s.Store.Observe()
	defer o.Close()
	action := ActionReset
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.Changed():
		}
		snapshot, changes, err := o.Poll(s.PollTimeout)
		if err != nil {
			// The change stays pending, retry shortly.
			glog.V(2).Infof("websocket poll: %v", err)
			time.Sleep(s.PollTimeout)
			o.Notify()
			continue
		}
		if changes.Empty() {
			continue
		}
		msg := &Message{Action: action, Change: dash.NewChange(snapshot, changes)}
		if err := websocket.JSON.Send(conn, msg); err != nil {
			return err
		}
		action = ActionUpdate
		if s.MinInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.MinInterval):
			}
		}
	}
}
