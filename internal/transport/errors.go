package transport

import (
	"errors"
	"fmt"
)

// ErrWouldBlock reports a non-blocking read or write that made no
// progress; callers should retry once the endpoint becomes ready again.
var ErrWouldBlock = errors.New("transport: would block")

// ErrReentrant is returned by CheckReadiness when it is invoked while
// already dispatching a PDU on the same Transport.
var ErrReentrant = errors.New("transport: reentrant CheckReadiness call")

// ErrPeerClosed is returned by Write and CheckReadiness once the layer
// is CLOSED, without touching the socket. A failed write moves the
// layer to CLOSED, taken as evidence the peer dropped the connection;
// Close/Disconnect moves it there as well, and those two operations
// report this same error in both cases.
var ErrPeerClosed = errors.New("transport: peer closed the connection")

// ErrClosed is returned by ReadExact and ReadOne once the layer is
// CLOSED (whether by Close or by a failed write), and by Write or
// CheckReadiness when no endpoint is attached.
var ErrClosed = errors.New("transport: use of closed transport")

// ProtocolError reports header bytes that matched no recognized
// framing, or a framing whose length encoding this implementation does
// not support.
type ProtocolError struct {
	Reason string
	Header []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("transport: protocol error: %s (header % x)", e.Reason, e.Header)
}

// AuthError wraps a CredSSP/NLA failure. The transport treats it as
// fatal to the connection.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("transport: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }
