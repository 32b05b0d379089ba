// Package transport implements the byte-stream layer of an RDP client:
// TPKT / Fast-Path / TSRequest framing over a TCP or TLS connection,
// a blocking single-PDU read used during negotiation, and a
// non-blocking readiness-driven dispatch loop used during the session.
package transport

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rdpgo/rdpgo/internal/config"
)

const (
	recvBufferInitialCap = 16 * 1024
	recvBufferHeadroom   = 32 * 1024
	// idleBackoff is the fallback sleep between unproductive blocking
	// read/write attempts when readiness polling is unavailable.
	// Exposed on Settings so a caller can override it.
	idleBackoff = 100 * time.Microsecond
)

// OnPDU is the upper-layer callback contract: buf holds exactly one
// complete PDU starting at offset 0. Returning an error causes
// CheckReadiness to report a failure to its own caller; the callback
// must never re-enter CheckReadiness on the same Transport.
type OnPDU func(t *Transport, buf []byte, extra interface{}) error

// Transport drives a single RDP connection's byte stream: it owns the
// active endpoint, the receive buffer, and the framing state needed to
// split that stream into discrete PDUs.
type Transport struct {
	ID uuid.UUID

	logger   *zap.Logger
	settings *config.Settings

	layer Layer
	tcp   *tcpEndpoint
	tls   Endpoint // set on UpgradeToTLS/AcceptTLS

	blocking     bool
	idleInterval time.Duration

	recvBuffer []byte
	recvLen    int // count of received-but-undispatched bytes

	recvScratch []byte // scratch for the blocking ReadOne path
	sendScratch []byte

	onPDU      OnPDU
	recvExtra  interface{}
	level      int32 // re-entrancy depth; CheckReadiness refuses to recurse
	closedByIO bool
}

// New allocates a Transport bound to settings. It starts in blocking
// mode on the TCP layer with no connection yet established.
func New(logger *zap.Logger, settings *config.Settings) *Transport {
	interval := idleBackoff
	if settings != nil && settings.IdleBackoff > 0 {
		interval = settings.IdleBackoff
	}
	return &Transport{
		ID:           uuid.New(),
		logger:       logger,
		settings:     settings,
		layer:        LayerTCP,
		blocking:     true,
		idleInterval: interval,
		recvBuffer:   make([]byte, recvBufferInitialCap),
		recvScratch:  make([]byte, recvBufferInitialCap),
		sendScratch:  make([]byte, recvBufferInitialCap),
	}
}

// Close releases the transport's endpoints. Safe to call more than
// once and safe on a nil receiver.
func (t *Transport) Close() error {
	if t == nil {
		return nil
	}
	return t.Disconnect()
}

// SetRecvCallback registers the upper-layer handler driven by
// CheckReadiness. Must be called before switching to non-blocking mode.
func (t *Transport) SetRecvCallback(cb OnPDU, extra interface{}) {
	t.onPDU = cb
	t.recvExtra = extra
}

// SetBlockingMode updates the transport's mode and propagates it to
// the active endpoint.
func (t *Transport) SetBlockingMode(blocking bool) {
	t.blocking = blocking
	if t.tcp != nil {
		t.tcp.SetBlocking(blocking)
	}
	if t.tls != nil {
		t.tls.SetBlocking(blocking)
	}
}

// Layer reports the currently active endpoint tag.
func (t *Transport) Layer() Layer { return t.layer }

// GetReadFds appends the active socket descriptor to out, for use with
// a unified readiness poll across multiple connections. On the TLS
// layer this is the descriptor of the TCP connection the TLS session
// runs over. Endpoints with no numeric fd and no TCP endpoint beneath
// them (test fakes) are omitted.
func (t *Transport) GetReadFds(out []int) []int {
	ep := t.activeEndpoint()
	if ep == nil {
		return out
	}
	fd := ep.Sockfd()
	if fd < 0 && t.layer == LayerTLS && t.tcp != nil {
		fd = t.tcp.Sockfd()
	}
	if fd < 0 {
		return out
	}
	return append(out, fd)
}

// TCPConn exposes the raw TCP connection for internal/sockinfo's
// TCP_INFO queries. It returns (nil, false) when no TCP endpoint is
// attached, e.g. in unit tests built over a fake Endpoint.
func (t *Transport) TCPConn() (*net.TCPConn, bool) {
	if t.tcp == nil {
		return nil, false
	}
	conn := t.tcp.TCPConn()
	return conn, conn != nil
}

func (t *Transport) activeEndpoint() Endpoint {
	switch t.layer {
	case LayerTLS:
		return t.tls
	case LayerTCP:
		if t.tcp == nil {
			return nil
		}
		return t.tcp
	default:
		return nil
	}
}

func (t *Transport) sleepIdle() {
	time.Sleep(t.idleInterval)
}

// ctxDone reports whether ctx has already been cancelled, used to bail
// out of otherwise-unbounded blocking loops without changing their
// external contract.
func ctxDone(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (t *Transport) incLevel() int32 { return atomic.AddInt32(&t.level, 1) }
func (t *Transport) decLevel()       { atomic.AddInt32(&t.level, -1) }
func (t *Transport) currentLevel() int32 {
	return atomic.LoadInt32(&t.level)
}
