package transport

import (
	"net"
	"time"
)

// Endpoint is the byte-stream contract the Transport drives. TCP and
// TLS endpoints both satisfy it; only one is active at a time,
// selected by Layer.
type Endpoint interface {
	// Read returns (n, nil) for n > 0 bytes read, (0, nil) on
	// would-block, or (0, err) on a hard I/O error.
	Read(buf []byte) (int, error)
	// Write returns the number of bytes accepted, or an error.
	Write(buf []byte) (int, error)
	// CanRecv reports whether the endpoint is readable within timeout.
	CanRecv(timeout time.Duration) bool
	SetBlocking(blocking bool)
	Close() error
	// Sockfd exposes the underlying descriptor for GetReadFds and
	// socket diagnostics; returns -1 when unavailable (e.g. a fake
	// endpoint used in tests).
	Sockfd() int
}

// Layer identifies which Endpoint is currently active on a Transport.
type Layer int

const (
	LayerTCP Layer = iota
	LayerTLS
	LayerClosed
)

func (l Layer) String() string {
	switch l {
	case LayerTCP:
		return "tcp"
	case LayerTLS:
		return "tls"
	case LayerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// tcpEndpoint is the default Endpoint backed by a *net.TCPConn.
//
// net.TCPConn exposes no MSG_PEEK primitive, so CanRecv's readiness
// probe necessarily consumes bytes when it finds any; peeked holds
// them until the next Read call drains it first, preserving Read's
// "exactly the bytes in socket order" contract.
type tcpEndpoint struct {
	conn     *net.TCPConn
	blocking bool
	peeked   []byte
}

func dialTCP(host, port string) (*tcpEndpoint, error) {
	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, &ProtocolError{Reason: "dialed connection is not TCP"}
	}
	return &tcpEndpoint{conn: tc, blocking: true}, nil
}

func attachTCP(conn *net.TCPConn) *tcpEndpoint {
	return &tcpEndpoint{conn: conn, blocking: true}
}

func (e *tcpEndpoint) Read(buf []byte) (int, error) {
	if len(e.peeked) > 0 {
		n := copy(buf, e.peeked)
		e.peeked = e.peeked[n:]
		return n, nil
	}
	if !e.blocking {
		e.conn.SetReadDeadline(time.Now().Add(1 * time.Millisecond))
	} else {
		e.conn.SetReadDeadline(time.Time{})
	}
	n, err := e.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (e *tcpEndpoint) Write(buf []byte) (int, error) {
	return e.conn.Write(buf)
}

func (e *tcpEndpoint) CanRecv(timeout time.Duration) bool {
	if len(e.peeked) > 0 {
		return true
	}
	if err := e.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false
	}
	defer e.conn.SetReadDeadline(time.Time{})
	probe := make([]byte, 4096)
	n, err := e.conn.Read(probe)
	if n > 0 {
		e.peeked = probe[:n]
		return true
	}
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return false
		}
	}
	return false
}

func (e *tcpEndpoint) SetBlocking(blocking bool) { e.blocking = blocking }

func (e *tcpEndpoint) Close() error { return e.conn.Close() }

// Sockfd reports the connection's underlying file descriptor, fetched
// through SyscallConn/Control since net.TCPConn does not cache it.
// Returns -1 if the descriptor cannot be obtained.
func (e *tcpEndpoint) Sockfd() int {
	raw, err := e.conn.SyscallConn()
	if err != nil {
		return -1
	}
	fd := -1
	if ctrlErr := raw.Control(func(f uintptr) { fd = int(f) }); ctrlErr != nil {
		return -1
	}
	return fd
}

// TCPConn exposes the underlying connection for internal/sockinfo's
// TCP_INFO queries. The connection stays available after an upgrade to
// TLS, since the TLS session runs over it.
func (e *tcpEndpoint) TCPConn() *net.TCPConn { return e.conn }
