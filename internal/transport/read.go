package transport

import (
	"context"
	"time"
)

// canRecvTimeout bounds how long ReadExact waits for readiness via the
// endpoint's CanRecv probe before re-checking.
const canRecvTimeout = 100 * time.Millisecond

// ReadExact reads exactly n bytes from the active layer into dst. In
// blocking mode it loops, backing off via CanRecv or a fixed idle sleep
// whenever the endpoint returns zero bytes. In non-blocking mode it
// returns immediately after the first read, however short — the caller
// (ReadOne) retries on its own schedule.
//
// A short non-blocking read is not itself an error: n may be less than
// len(dst), and err is nil. Only a hard I/O error from the endpoint is
// returned as err.
func (t *Transport) ReadExact(ctx context.Context, dst []byte) (int, error) {
	if t.layer == LayerClosed {
		return 0, ErrClosed
	}
	ep := t.activeEndpoint()
	if ep == nil {
		return 0, ErrClosed
	}

	total := 0
	for total < len(dst) {
		if ctxDone(ctx) {
			return total, ctx.Err()
		}
		n, err := ep.Read(dst[total:])
		if err != nil {
			return total, err
		}
		total += n

		if !t.blocking {
			return total, nil
		}
		if n == 0 {
			if ep.CanRecv(canRecvTimeout) {
				continue
			}
			t.sleepIdle()
		}
	}
	return total, nil
}

// ReadOne reads exactly one framed PDU into dst, growing dst if
// necessary. It returns the number of bytes obtained by this call
// (which may be a partial header in non-blocking mode; the caller
// retries) and the final buffer holding whatever has been read so far.
func (t *Transport) ReadOne(ctx context.Context, dst []byte) ([]byte, int, error) {
	const minHeader = 4
	if len(dst) < minHeader {
		dst = append(dst, make([]byte, minHeader-len(dst))...)
	}

	have := 0
	for have < minHeader {
		n, err := t.ReadExact(ctx, dst[have:minHeader])
		have += n
		if err != nil {
			return dst, have, err
		}
		if !t.blocking && n == 0 {
			return dst[:have], have, nil
		}
	}

	decision, err := recognizeHeader(dst[:have])
	if err != nil {
		return dst, have, err
	}
	if decision.Total == 0 {
		return dst, have, &ProtocolError{Reason: "unrecognized PDU framing", Header: append([]byte(nil), dst[:have]...)}
	}

	if decision.Total > len(dst) {
		dst = append(dst, make([]byte, decision.Total-len(dst))...)
	}

	n, err := t.ReadExact(ctx, dst[have:decision.Total])
	have += n
	if err != nil {
		return dst, have, err
	}
	return dst[:have], have, nil
}

// ReadOnePDU is a convenience wrapper used by internal/transport/credssp
// during the NLA exchange: it performs a single blocking ReadOne into a
// fresh buffer and returns the complete PDU bytes.
func (t *Transport) ReadOnePDU(ctx context.Context) ([]byte, error) {
	buf := make([]byte, recvBufferInitialCap)
	out, _, err := t.ReadOne(ctx, buf)
	if err != nil {
		return nil, err
	}
	return out, nil
}
