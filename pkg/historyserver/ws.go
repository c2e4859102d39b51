package historyserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	cerrors "github.com/vango-dev/consoleroutes/internal/errors"
	"github.com/vango-dev/consoleroutes/pkg/middleware"
	"github.com/vango-dev/consoleroutes/pkg/router"
)

// Navigation operations accepted on /ws/navigate.
const (
	OpPush    = "push"
	OpReplace = "replace"
	OpBack    = "back"
	OpForward = "forward"
	OpGo      = "go"
	OpCurrent = "current"
)

const (
	eventNavigation = "navigation"
	eventRoutes     = "routes"
	eventReset      = "reset"
	eventHello      = "hello"
)

// Request is a client navigation message.
type Request struct {
	Seq   int    `json:"seq,omitempty"`
	Op    string `json:"op"`
	Path  string `json:"path,omitempty"`
	Delta int    `json:"delta,omitempty"`
}

// Reply answers a Request. A suppressed duplicate navigation carries the
// current location and a failure but no error.
type Reply struct {
	Type     string                `json:"type"`
	ID       string                `json:"id"`
	Seq      int                   `json:"seq,omitempty"`
	Location *router.Location      `json:"location,omitempty"`
	Title    string                `json:"title,omitempty"`
	Views    []string              `json:"views,omitempty"`
	Failure  string                `json:"failure,omitempty"`
	Error    *cerrors.ConsoleError `json:"error,omitempty"`
}

// event is pushed to every connection when the table changes.
type event struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Records int    `json:"records"`
}

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// hub tracks open navigation connections.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// broadcast sends ev to every client; clients that fail are dropped.
func (h *hub) broadcast(ev event) {
	for _, c := range h.snapshot() {
		if err := c.write(ev); err != nil {
			h.remove(c)
			c.conn.Close()
		}
	}
}

func (h *hub) closeAll() {
	for _, c := range h.snapshot() {
		h.remove(c)
		c.conn.Close()
	}
}

// handleNavigate runs one navigator per connection.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		if s.metrics != nil {
			s.metrics.RecordWebSocketError("upgrade")
		}
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	logger := s.logger.With("conn", c.id)
	s.hub.add(c)
	if s.metrics != nil {
		s.metrics.RecordConnection(1)
	}
	defer func() {
		s.hub.remove(c)
		conn.Close()
		if s.metrics != nil {
			s.metrics.RecordConnection(-1)
		}
		logger.Debug("navigation connection closed")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	nav := router.NewNavigator(s.table,
		router.WithGuards(s.guards...),
		router.WithNavigatorLogger(logger),
	)
	push := s.pusher(nav)

	conn.SetReadLimit(maxMessageSize)
	if err := c.write(event{Type: eventHello, ID: c.id, Records: s.table.Len()}); err != nil {
		return
	}

	for {
		if s.readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if s.metrics != nil {
					s.metrics.RecordWebSocketError("read")
				}
				logger.Debug("navigation read failed", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			if s.metrics != nil {
				s.metrics.RecordWebSocketError("decode")
			}
			if c.write(Reply{Type: eventNavigation, ID: c.id, Error: cerrors.New("E301").Wrap(err)}) != nil {
				return
			}
			continue
		}

		reply := s.dispatch(ctx, nav, push, c.id, req)
		if err := c.write(reply); err != nil {
			if s.metrics != nil {
				s.metrics.RecordWebSocketError("write")
			}
			logger.Error("navigation write failed", "error", err)
			return
		}
	}
}

// pusher stacks the instrumentation under IgnoreDuplicates so suppressed
// duplicates are still observed.
func (s *Server) pusher(nav *router.Navigator) router.Pusher {
	var p router.Pusher = nav
	if s.tracing {
		p = middleware.Trace(p, s.traceOpts...)
	}
	if s.metrics != nil {
		p = s.metrics.Pusher(p)
	}
	return router.IgnoreDuplicates(p)
}

func (s *Server) dispatch(ctx context.Context, nav *router.Navigator, push router.Pusher, id string, req Request) Reply {
	start := time.Now()
	var (
		loc *router.Location
		err error
	)
	switch req.Op {
	case OpPush:
		loc, err = push.Push(ctx, req.Path)
	case OpReplace:
		loc, err = nav.Replace(ctx, req.Path)
	case OpBack:
		loc, err = nav.Back(ctx)
	case OpForward:
		loc, err = nav.Forward(ctx)
	case OpGo:
		loc, err = nav.Go(ctx, req.Delta)
	case OpCurrent:
		loc = nav.Current()
	default:
		return Reply{
			Type:  eventNavigation,
			ID:    id,
			Seq:   req.Seq,
			Error: cerrors.New("E301").WithDetailf("Unknown op %q", req.Op),
		}
	}
	if s.metrics != nil && req.Op != OpPush && req.Op != OpCurrent {
		s.metrics.Observe(req.Op, loc, err, time.Since(start))
	}
	return newReply(id, req.Seq, loc, err)
}

func newReply(id string, seq int, loc *router.Location, err error) Reply {
	reply := Reply{Type: eventNavigation, ID: id, Seq: seq, Location: loc}
	if loc != nil {
		reply.Title = loc.Title()
		for _, v := range loc.Views {
			if v != nil {
				reply.Views = append(reply.Views, v.ViewName())
			}
		}
		var nf *router.NavigationError
		if errors.As(loc.Failure, &nf) {
			reply.Failure = nf.Kind.String()
		}
	}
	if err != nil {
		var nf *router.NavigationError
		if errors.As(err, &nf) {
			reply.Failure = nf.Kind.String()
		}
		if errors.Is(err, router.ErrHistoryBounds) {
			reply.Error = cerrors.New("E303").Wrap(err)
		} else {
			reply.Error, _ = codedError(err)
		}
	}
	return reply
}
