package transport

import "context"

// Write delivers the entirety of buf to the peer. It loops until every
// byte is accepted or the connection is marked closed. A negative/error
// status from the endpoint transitions the layer to CLOSED; every
// subsequent Write then fails fast without touching the socket, since a
// write failure is taken as evidence the peer dropped the connection.
func (t *Transport) Write(ctx context.Context, buf []byte) (int, error) {
	if t.layer == LayerClosed {
		return 0, ErrPeerClosed
	}
	ep := t.activeEndpoint()
	if ep == nil {
		return 0, ErrClosed
	}

	sent := 0
	for sent < len(buf) {
		if ctxDone(ctx) {
			return sent, ctx.Err()
		}
		n, err := ep.Write(buf[sent:])
		if err != nil {
			t.layer = LayerClosed
			return sent, err
		}
		sent += n
		if n == 0 {
			t.sleepIdle()
		}
	}
	return sent, nil
}
