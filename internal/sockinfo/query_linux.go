//go:build linux

package sockinfo

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

func queryPlatform(conn *net.TCPConn) (Snapshot, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Snapshot{}, err
	}

	var info *unix.TCPInfo
	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		info, sockErr = unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
	})
	if ctrlErr != nil {
		return Snapshot{}, ctrlErr
	}
	if sockErr != nil {
		return Snapshot{}, sockErr
	}

	return Snapshot{
		RTT:              time.Duration(info.Rtt) * time.Microsecond,
		RTTVariance:      time.Duration(info.Rttvar) * time.Microsecond,
		Retransmits:      info.Retransmits,
		TotalRetransmits: info.Total_retrans,
		SendCwnd:         info.Snd_cwnd,
	}, nil
}
