package gateway

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"njord/domain/orderbook"
	"njord/infra/spsc"
	"njord/metrics"
	"njord/protocol"
)

// Session is one client connection. Its reader goroutine decodes frames,
// validates the client's monotonic request sequence, stamps receive times,
// and pushes accepted requests into the session's inbound SPSC queue for
// the gateway cycle to drain. Duplicate and out-of-sequence requests are
// dropped here and never reach the sequencer.
type Session struct {
	id   uuid.UUID
	conn net.Conn

	// clientID binds on the first valid request; later requests claiming
	// a different client are dropped. boundID mirrors it (clientID+1,
	// zero while unbound) for the cycle goroutine, which must not touch
	// the reader-owned fields.
	clientID orderbook.ClientID
	bound    bool
	boundID  atomic.Uint64

	nextSeq uint64

	inbound *spsc.Queue[protocol.ClientRequest]
	log     zerolog.Logger
}

func newSession(conn net.Conn, queueCap uint64, log zerolog.Logger) *Session {
	id := uuid.New()
	return &Session{
		id:      id,
		conn:    conn,
		nextSeq: 1,
		inbound: spsc.New[protocol.ClientRequest](queueCap),
		log: log.With().
			Str("session", id.String()).
			Str("remote", conn.RemoteAddr().String()).
			Logger(),
	}
}

// readLoop consumes frames until the connection closes or ctx-driven
// listener shutdown closes the conn underneath it.
func (s *Session) readLoop() error {
	var buf []byte
	var req protocol.ClientRequest
	for {
		payload, err := protocol.ReadFrame(s.conn, buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("session closed")
				return nil
			}
			s.log.Warn().Err(err).Msg("session read failed")
			return nil
		}
		buf = payload[:0]
		recvNanos := time.Now().UnixNano()

		if err := protocol.DecodeRequest(payload, &req); err != nil {
			metrics.RequestsDropped.WithLabelValues("malformed").Inc()
			s.log.Warn().Err(err).Msg("dropping malformed request")
			continue
		}
		if !s.accept(&req) {
			continue
		}

		req.RecvNanos = recvNanos
		slot := s.inbound.WriteSlot()
		if slot == nil {
			// The cycle goroutine fell behind a queue sized past any
			// realistic per-session burst.
			panic("gateway: session inbound queue overflow")
		}
		*slot = req
		s.inbound.CommitWrite()
		metrics.RequestsAccepted.WithLabelValues(req.Type.String()).Inc()
	}
}

// accept enforces the per-client request sequence contract.
func (s *Session) accept(req *protocol.ClientRequest) bool {
	if !s.bound {
		s.clientID = req.ClientID
		s.bound = true
		s.boundID.Store(uint64(req.ClientID) + 1)
	} else if req.ClientID != s.clientID {
		metrics.RequestsDropped.WithLabelValues("client_mismatch").Inc()
		s.log.Warn().
			Uint32("claimed", uint32(req.ClientID)).
			Uint32("bound", uint32(s.clientID)).
			Msg("dropping request with foreign client id")
		return false
	}
	if req.Seq != s.nextSeq {
		metrics.RequestsDropped.WithLabelValues("sequence").Inc()
		s.log.Warn().
			Uint64("got", req.Seq).
			Uint64("want", s.nextSeq).
			Msg("dropping out-of-sequence request")
		return false
	}
	s.nextSeq++
	return true
}

// boundClient reports the client id bound to this session, if any. Safe
// from any goroutine.
func (s *Session) boundClient() (orderbook.ClientID, bool) {
	v := s.boundID.Load()
	if v == 0 {
		return 0, false
	}
	return orderbook.ClientID(v - 1), true
}

func (s *Session) close() {
	_ = s.conn.Close()
}
