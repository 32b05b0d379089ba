//go:build !linux

package sockinfo

import "net"

func queryPlatform(*net.TCPConn) (Snapshot, error) {
	return Snapshot{}, ErrUnsupported
}
