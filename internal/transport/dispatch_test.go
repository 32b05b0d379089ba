package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeEndpoint is a fake Endpoint: an in-memory stand-in for
// tcpEndpoint/tlsendpoint.Endpoint, queueing byte chunks for Read and
// recording whatever is handed to Write.
type pipeEndpoint struct {
	mu       sync.Mutex
	inbound  [][]byte
	written  []byte
	writeErr error
	writes   int
	closed   bool
}

func (p *pipeEndpoint) push(chunk []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), chunk...)
	p.inbound = append(p.inbound, cp)
}

func (p *pipeEndpoint) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.inbound) == 0 {
		return 0, nil
	}
	chunk := p.inbound[0]
	n := copy(buf, chunk)
	if n < len(chunk) {
		p.inbound[0] = chunk[n:]
	} else {
		p.inbound = p.inbound[1:]
	}
	return n, nil
}

func (p *pipeEndpoint) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, buf...)
	return len(buf), nil
}

func (p *pipeEndpoint) CanRecv(time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inbound) > 0
}

func (p *pipeEndpoint) SetBlocking(bool) {}

func (p *pipeEndpoint) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *pipeEndpoint) Sockfd() int { return -1 }

// newFakeTransport builds a Transport whose active endpoint is a
// pipeEndpoint, bypassing ConnectTCP/Attach entirely.
func newFakeTransport() (*Transport, *pipeEndpoint) {
	tr := New(nil, nil)
	ep := &pipeEndpoint{}
	tr.tls = ep
	tr.layer = LayerTLS
	tr.blocking = false
	return tr, ep
}

func TestGetReadFdsOmitsDescriptorlessEndpoint(t *testing.T) {
	tr, _ := newFakeTransport()
	fds := tr.GetReadFds([]int{7})
	assert.Equal(t, []int{7}, fds, "a fake endpoint with no descriptor must not append one")
}

func TestCheckReadinessSingleTPKTWhole(t *testing.T) {
	tr, ep := newFakeTransport()
	var got [][]byte
	tr.SetRecvCallback(func(_ *Transport, buf []byte, _ interface{}) error {
		got = append(got, append([]byte(nil), buf...))
		return nil
	}, nil)

	pdu := []byte{0x03, 0x00, 0x00, 0x08, 0xAA, 0xBB, 0xCC, 0xDD}
	ep.push(pdu)

	require.NoError(t, tr.CheckReadiness(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, pdu, got[0])
}

func TestCheckReadinessSingleTPKTByteByByte(t *testing.T) {
	tr, ep := newFakeTransport()
	var got [][]byte
	tr.SetRecvCallback(func(_ *Transport, buf []byte, _ interface{}) error {
		got = append(got, append([]byte(nil), buf...))
		return nil
	}, nil)

	pdu := []byte{0x03, 0x00, 0x00, 0x08, 0xAA, 0xBB, 0xCC, 0xDD}
	for i, b := range pdu {
		ep.push([]byte{b})
		require.NoError(t, tr.CheckReadiness(context.Background()))
		if i < len(pdu)-1 {
			assert.Empty(t, got, "no callback before the full PDU has arrived")
		}
	}
	require.Len(t, got, 1)
	assert.Equal(t, pdu, got[0])
}

func TestCheckReadinessTwoBackToBackFastPathFrames(t *testing.T) {
	tr, ep := newFakeTransport()
	var got [][]byte
	tr.SetRecvCallback(func(_ *Transport, buf []byte, _ interface{}) error {
		got = append(got, append([]byte(nil), buf...))
		return nil
	}, nil)

	ep.push([]byte{0x04, 0x04, 0x11, 0x22, 0x04, 0x04, 0x33, 0x44})

	require.NoError(t, tr.CheckReadiness(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, []byte{0x04, 0x04, 0x11, 0x22}, got[0])

	require.NoError(t, tr.CheckReadiness(context.Background()))
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0x04, 0x04, 0x33, 0x44}, got[1])
}

func TestCheckReadinessTSRequestExtendedLength(t *testing.T) {
	tr, ep := newFakeTransport()
	var got [][]byte
	tr.SetRecvCallback(func(_ *Transport, buf []byte, _ interface{}) error {
		got = append(got, append([]byte(nil), buf...))
		return nil
	}, nil)

	pdu := []byte{0x30, 0x81, 0x04, 0x01, 0x02, 0x03, 0x04}
	ep.push(pdu)

	require.NoError(t, tr.CheckReadiness(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, pdu, got[0])
}

func TestCheckReadinessProtocolErrorNoCallback(t *testing.T) {
	tr, ep := newFakeTransport()
	called := false
	tr.SetRecvCallback(func(_ *Transport, _ []byte, _ interface{}) error {
		called = true
		return nil
	}, nil)

	// A length encoding wider than the two octets this implementation
	// supports is the one unambiguous protocol error recognizeHeader
	// reports.
	ep.push([]byte{0x30, 0x83, 0x01, 0x02, 0x03})

	err := tr.CheckReadiness(context.Background())
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.False(t, called)
}

func TestWriteAfterPeerCloseTransitionsLayerClosed(t *testing.T) {
	tr, ep := newFakeTransport()
	ep.writeErr = assert.AnError

	n, err := tr.Write(context.Background(), []byte{0x01, 0x02})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, LayerClosed, tr.Layer())
	assert.Equal(t, 1, ep.writes)

	n, err = tr.Write(context.Background(), []byte{0x03})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPeerClosed)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, ep.writes, "second Write must not touch the endpoint once closed")
}

func TestCheckReadinessReentrantGuard(t *testing.T) {
	tr, ep := newFakeTransport()
	tr.SetRecvCallback(func(inner *Transport, _ []byte, _ interface{}) error {
		return inner.CheckReadiness(context.Background())
	}, nil)

	ep.push([]byte{0x03, 0x00, 0x00, 0x04})

	err := tr.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callback failed")
}
