package feed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pushp314/devconnect-sync/pkg/logger"
)

// Socket is the websocket implementation of Feed. It keeps a client-side
// registry of topic handlers, tells the backend which topics it wants
// via control frames, and redials with a rate limit when the connection
// drops so a flapping backend cannot trigger a reconnect storm.
type Socket struct {
	url   string
	token string
	log   zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[Topic]Handler
	closed   bool

	// writeMu serializes WriteJSON calls; gorilla allows at most one
	// concurrent writer per connection.
	writeMu sync.Mutex

	redial *rate.Limiter
	cancel context.CancelFunc
	done   chan struct{}
}

// controlFrame is sent by the client to manage its topic set.
type controlFrame struct {
	Action string `json:"action"` // subscribe | unsubscribe
	Topic  string `json:"topic"`
}

func NewSocket(url, token string) *Socket {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		url:      url,
		token:    token,
		log:      logger.With("feed"),
		handlers: make(map[Topic]Handler),
		redial:   rate.NewLimiter(rate.Every(5*time.Second), 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Subscribe registers fn for topic. A second subscribe for the same
// topic is a no-op that returns a teardown for the existing one.
func (s *Socket) Subscribe(topic Topic, fn Handler) (Unsubscribe, error) {
	s.mu.Lock()
	if _, exists := s.handlers[topic]; exists {
		s.mu.Unlock()
		s.log.Debug().Str("topic", string(topic)).Msg("Duplicate subscribe ignored")
		return func() { s.unsubscribe(topic) }, nil
	}
	s.handlers[topic] = fn
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		if err := s.writeFrame(conn, controlFrame{Action: "subscribe", Topic: string(topic)}); err != nil {
			s.log.Warn().Err(err).Str("topic", string(topic)).Msg("Subscribe frame failed, will resend on reconnect")
		}
	}
	return func() { s.unsubscribe(topic) }, nil
}

func (s *Socket) unsubscribe(topic Topic) {
	s.mu.Lock()
	_, exists := s.handlers[topic]
	delete(s.handlers, topic)
	conn := s.conn
	s.mu.Unlock()

	if exists && conn != nil {
		_ = s.writeFrame(conn, controlFrame{Action: "unsubscribe", Topic: string(topic)})
	}
}

// writeFrame serializes control-frame writes. Subscribe calls arrive
// from the poller, from session callers, and from run's re-announce
// loop, so writes must not race on the connection.
func (s *Socket) writeFrame(conn *websocket.Conn, f controlFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(f)
}

// Close tears down every subscription and stops the redial loop.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.handlers = make(map[Topic]Handler)
	conn := s.conn
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-s.done
	return nil
}

// run owns the connection: dial, resubscribe, read until failure, redo.
func (s *Socket) run(ctx context.Context) {
	defer close(s.done)

	for {
		if err := s.redial.Wait(ctx); err != nil {
			return // Close was called
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url+"?token="+s.token, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("Feed dial failed, will retry")
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		topics := make([]Topic, 0, len(s.handlers))
		for t := range s.handlers {
			topics = append(topics, t)
		}
		s.mu.Unlock()

		// Re-announce every live topic after a reconnect.
		for _, t := range topics {
			if err := s.writeFrame(conn, controlFrame{Action: "subscribe", Topic: string(t)}); err != nil {
				break
			}
		}

		s.readLoop(conn)

		s.mu.Lock()
		s.conn = nil
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
	}
}

func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Msg("Feed connection closed")
			conn.Close()
			return
		}

		topic, ev, err := Decode(raw)
		if err != nil {
			// Malformed frames must never crash the merge pipeline.
			s.log.Warn().Err(err).Msg("Dropping malformed feed frame")
			continue
		}

		s.mu.Lock()
		handler := s.handlers[topic]
		s.mu.Unlock()
		if handler == nil {
			s.log.Debug().Str("topic", string(topic)).Msg("Frame for unsubscribed topic dropped")
			continue
		}
		handler(ev)
	}
}
