package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// CheckReadiness is the steady-state, non-blocking dispatch operation:
// called from the caller's event loop once the transport's socket is
// readable. At most one PDU is dispatched per invocation; additional
// buffered bytes remain queued for the next call. Re-entrant invocation
// — from inside the callback itself — fails immediately without
// advancing state.
func (t *Transport) CheckReadiness(ctx context.Context) error {
	if t.currentLevel() > 0 {
		t.logEvent().Error("CheckReadiness invoked re-entrantly")
		return ErrReentrant
	}
	if t.layer == LayerClosed {
		return ErrPeerClosed
	}

	t.growRecvBuffer(recvBufferHeadroom)

	n, err := t.readIntoRecvBuffer(ctx)
	if err != nil {
		return err
	}
	t.recvLen += n

	if t.recvLen == 0 {
		return nil
	}

	decision, err := recognizeHeader(t.recvBuffer[:t.recvLen])
	if err != nil {
		t.logEvent().Debug("protocol error decoding PDU header", zap.Binary("buffered", t.recvBuffer[:t.recvLen]))
		return err
	}

	if decision.Need > 0 {
		return nil // header incomplete; wait for more bytes
	}

	if decision.Total == 0 {
		t.logEvent().Debug("unrecognized framing after header bytes present", zap.Binary("buffered", t.recvBuffer[:t.recvLen]))
		return &ProtocolError{Reason: "unrecognized PDU framing", Header: append([]byte(nil), t.recvBuffer[:t.recvLen]...)}
	}

	if t.recvLen < decision.Total {
		return nil // partial frame; wait for more
	}

	pdu := t.recvBuffer[:decision.Total]

	t.incLevel()
	cbErr := t.invokeCallback(pdu)
	t.decLevel()

	t.consumeRecvBuffer(decision.Total)

	if cbErr != nil {
		return fmt.Errorf("transport: callback failed: %w", cbErr)
	}
	return nil
}

func (t *Transport) invokeCallback(pdu []byte) (err error) {
	if t.onPDU == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			t.logEvent().Error("recv callback panicked", zap.Any("panic", r))
			err = fmt.Errorf("transport: callback panicked: %v", r)
		}
	}()
	return t.onPDU(t, pdu, t.recvExtra)
}

// readIntoRecvBuffer issues a single ReadOne-equivalent read directly
// into the tail of recvBuffer, reusing the same endpoint-level
// primitives as the blocking path but without the multi-round-trip
// header/body split ReadOne performs — CheckReadiness only ever wants
// "whatever bytes are available right now".
func (t *Transport) readIntoRecvBuffer(ctx context.Context) (int, error) {
	if ctxDone(ctx) {
		return 0, ctx.Err()
	}
	ep := t.activeEndpoint()
	if ep == nil {
		return 0, ErrClosed
	}
	return ep.Read(t.recvBuffer[t.recvLen:])
}

func (t *Transport) growRecvBuffer(headroom int) {
	need := t.recvLen + headroom
	if cap(t.recvBuffer) >= need {
		t.recvBuffer = t.recvBuffer[:cap(t.recvBuffer)]
		return
	}
	grown := make([]byte, need)
	copy(grown, t.recvBuffer[:t.recvLen])
	t.recvBuffer = grown
}

// consumeRecvBuffer removes the first n dispatched bytes, sliding any
// remaining buffered bytes (start of the next PDU) down to offset 0 —
// the receive buffer is sized for a single outstanding PDU, so any
// leftover bytes are simply the prefix of the next one.
func (t *Transport) consumeRecvBuffer(n int) {
	remaining := t.recvLen - n
	if remaining > 0 {
		copy(t.recvBuffer, t.recvBuffer[n:t.recvLen])
	}
	t.recvLen = remaining
}
