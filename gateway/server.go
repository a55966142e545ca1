// Package gateway is the venue's client-facing boundary: it accepts TCP
// sessions, validates and timestamps their requests, imposes the venue's
// deterministic total order via the FIFO sequencer, and delivers engine
// responses back to their owning sessions in order.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"njord/domain/orderbook"
	"njord/infra/spsc"
	"njord/metrics"
	"njord/protocol"
)

// Config sizes the gateway.
type Config struct {
	ListenAddr string
	// SessionQueueCap bounds each session's inbound queue; power of two.
	SessionQueueCap uint64
	// CycleBackoff is the sleep between empty service cycles.
	CycleBackoff time.Duration
}

// Server owns the listener, the live sessions, the FIFO sequencer cycle,
// and the response dispatch loop.
type Server struct {
	cfg Config
	seq *FIFOSequencer

	responses *spsc.Queue[orderbook.ClientResponse]
	dropCopy  *spsc.Queue[orderbook.ClientResponse]

	mu       sync.RWMutex
	sessions []*Session
	byClient map[orderbook.ClientID]*Session

	ready chan struct{}
	addr  net.Addr

	log zerolog.Logger
}

// New creates a gateway publishing sequenced requests into engineIn and
// draining responses from responses. Each response is also copied into
// dropCopy for the egress feed; dropCopy may be nil.
func New(
	cfg Config,
	engineIn *spsc.Queue[protocol.ClientRequest],
	responses *spsc.Queue[orderbook.ClientResponse],
	dropCopy *spsc.Queue[orderbook.ClientResponse],
	log zerolog.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		seq:       NewFIFOSequencer(engineIn),
		responses: responses,
		dropCopy:  dropCopy,
		byClient:  make(map[orderbook.ClientID]*Session),
		ready:     make(chan struct{}),
		log:       log.With().Str("component", "gateway").Logger(),
	}
}

// Addr returns the bound listen address once Run has opened the listener.
func (s *Server) Addr() net.Addr {
	<-s.ready
	return s.addr
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}
	s.addr = listener.Addr()
	close(s.ready)
	s.log.Info().Str("addr", s.addr.String()).Msg("gateway listening")

	t.Go(func() error {
		<-ctx.Done()
		// Unblocks Accept and every session read.
		err := listener.Close()
		s.closeSessions()
		return err
	})
	t.Go(func() error { return s.acceptLoop(ctx, t, listener) })
	t.Go(func() error { return s.cycleLoop(ctx) })
	t.Go(func() error { return s.dispatchLoop(ctx) })

	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context, t *tomb.Tomb, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error().Err(err).Msg("accept failed")
			continue
		}
		sess := newSession(conn, s.cfg.SessionQueueCap, s.log)
		s.addSession(sess)
		t.Go(func() error {
			defer s.removeSession(sess)
			return sess.readLoop()
		})
	}
}

// cycleLoop is the I/O service cycle: drain every session's pending
// requests into the sequencer, then publish them as one deterministically
// ordered batch.
func (s *Server) cycleLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		for _, sess := range s.snapshotSessions() {
			for {
				req := sess.inbound.ReadSlot()
				if req == nil {
					break
				}
				s.seq.AddRequest(req.RecvNanos, *req)
				sess.inbound.CommitRead()
			}
			// A session is addressable for responses once its first
			// valid request has bound a client id.
			if id, ok := sess.boundClient(); ok {
				s.bindClient(id, sess)
			}
		}
		published := s.seq.SequenceAndPublish()
		if published == 0 {
			time.Sleep(s.cfg.CycleBackoff)
		}
	}
}

// dispatchLoop delivers engine responses to their sessions. A single
// goroutine drains the queue in order, which is exactly the per-client
// delivery-order guarantee.
func (s *Server) dispatchLoop(ctx context.Context) error {
	var buf []byte
	for {
		resp := s.responses.ReadSlot()
		if resp == nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				time.Sleep(s.cfg.CycleBackoff)
				continue
			}
		}

		if s.dropCopy != nil {
			if slot := s.dropCopy.WriteSlot(); slot != nil {
				*slot = *resp
				s.dropCopy.CommitWrite()
			} else {
				metrics.RequestsDropped.WithLabelValues("drop_copy_backlog").Inc()
			}
		}

		if sess := s.sessionFor(resp.ClientID); sess != nil {
			buf = protocol.AppendResponse(buf[:0], resp)
			if err := protocol.WriteFrame(sess.conn, buf); err != nil {
				sess.log.Warn().Err(err).Msg("response write failed, closing session")
				sess.close()
			}
		}
		s.responses.CommitRead()
		metrics.QueueDepth.WithLabelValues("responses").Set(float64(s.responses.Size()))
	}
}

func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()
}

func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	for i, cur := range s.sessions {
		if cur == sess {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
	if id, ok := sess.boundClient(); ok && s.byClient[id] == sess {
		delete(s.byClient, id)
	}
	s.mu.Unlock()
	sess.close()
}

func (s *Server) bindClient(id orderbook.ClientID, sess *Session) {
	s.mu.Lock()
	if s.byClient[id] == nil {
		s.byClient[id] = sess
	}
	s.mu.Unlock()
}

func (s *Server) sessionFor(id orderbook.ClientID) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byClient[id]
}

func (s *Server) snapshotSessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		sess.close()
	}
}
