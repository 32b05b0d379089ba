// Package sockinfo exposes TCP_INFO diagnostics for the transport's
// active TCP endpoint, using golang.org/x/sys/unix's typed
// GetsockoptTCPInfo rather than hand-rolling the raw kernel struct
// layout.
package sockinfo

import (
	"fmt"
	"net"
	"time"
)

// Snapshot is the subset of Linux's tcp_info this package surfaces:
// enough to explain why a Transport feels slow without pulling in the
// kernel's full ~250-byte struct.
type Snapshot struct {
	RTT              time.Duration
	RTTVariance      time.Duration
	Retransmits      uint8
	TotalRetransmits uint32
	SendCwnd         uint32
}

// Query fetches a Snapshot for conn's underlying file descriptor. It
// is only implemented on linux (query_linux.go); query_other.go
// returns ErrUnsupported everywhere else.
func Query(conn *net.TCPConn) (Snapshot, error) {
	return queryPlatform(conn)
}

// ErrUnsupported is returned by Query on platforms without TCP_INFO.
var ErrUnsupported = fmt.Errorf("sockinfo: TCP_INFO is not supported on this platform")
