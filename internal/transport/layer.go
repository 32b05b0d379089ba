package transport

import (
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/rdpgo/rdpgo/internal/transport/credssp"
	"github.com/rdpgo/rdpgo/internal/transport/tlsendpoint"
)

// ConnectTCP opens a new TCP connection to host:port and marks it
// active.
func (t *Transport) ConnectTCP(host, port string) error {
	ep, err := dialTCP(host, port)
	if err != nil {
		return err
	}
	ep.SetBlocking(t.blocking)
	t.tcp = ep
	t.layer = LayerTCP
	t.logEvent().Debug("connected over tcp", zap.String("host", host), zap.String("port", port))
	return nil
}

// Attach adopts an already-connected socket without dialing
// (server-side use).
func (t *Transport) Attach(conn *net.TCPConn) {
	ep := attachTCP(conn)
	ep.SetBlocking(t.blocking)
	t.tcp = ep
	t.layer = LayerTCP
}

// UpgradeToTLS performs an in-place TLS client handshake over the
// current TCP descriptor: the layer tag flips to TLS only once the
// handshake succeeds; on failure layer is left unchanged.
func (t *Transport) UpgradeToTLS(ctx context.Context) error {
	if t.tcp == nil {
		return &ProtocolError{Reason: "UpgradeToTLS called with no TCP endpoint attached"}
	}
	ep, err := tlsendpoint.Dial(ctx, t.logger, t.tcp.conn, tlsendpoint.Config{
		PinnedFingerprint: t.settings.PinnedFingerprint(),
	})
	if err != nil {
		t.logEvent().Warn("tls handshake failed", zap.Error(err))
		return err
	}
	ep.SetBlocking(t.blocking)
	t.tls = ep
	t.layer = LayerTLS
	t.logEvent().Debug("upgraded to tls")
	return nil
}

// UpgradeToNLA performs UpgradeToTLS, then — if the caller's settings
// request authentication — runs CredSSP to completion over the now-TLS
// transport. Authentication failure is fatal.
func (t *Transport) UpgradeToNLA(ctx context.Context) error {
	if err := t.UpgradeToTLS(ctx); err != nil {
		return err
	}
	if t.settings == nil || !t.settings.Authentication {
		return nil
	}
	auth := credssp.New(t.logger)
	if err := auth.Authenticate(ctx, t); err != nil {
		t.logEvent().Error("NLA authentication failed; check credentials and retry", zap.Error(err))
		return &AuthError{Err: err}
	}
	return nil
}

// AcceptTLS is the server-side mirror of UpgradeToTLS: it performs a
// TLS server handshake using the given certificate/key pair.
func (t *Transport) AcceptTLS(ctx context.Context, certFile, keyFile string) error {
	if t.tcp == nil {
		return &ProtocolError{Reason: "AcceptTLS called with no TCP endpoint attached"}
	}
	ep, err := tlsendpoint.Accept(ctx, t.logger, t.tcp.conn, certFile, keyFile)
	if err != nil {
		t.logEvent().Warn("tls accept failed", zap.Error(err))
		return err
	}
	ep.SetBlocking(t.blocking)
	t.tls = ep
	t.layer = LayerTLS
	return nil
}

// AcceptNLA is the server-side mirror of UpgradeToNLA.
func (t *Transport) AcceptNLA(ctx context.Context, certFile, keyFile string) error {
	if err := t.AcceptTLS(ctx, certFile, keyFile); err != nil {
		return err
	}
	if t.settings == nil || !t.settings.Authentication {
		return nil
	}
	auth := credssp.New(t.logger)
	if err := auth.AuthenticateServer(ctx, t); err != nil {
		return &AuthError{Err: err}
	}
	return nil
}

// Disconnect closes the TLS session (if active) and then the TCP
// endpoint.
func (t *Transport) Disconnect() error {
	var err error
	if t.layer == LayerTLS && t.tls != nil {
		err = t.tls.Close()
		t.tls = nil
	}
	if t.tcp != nil {
		if cerr := t.tcp.Close(); err == nil {
			err = cerr
		}
		t.tcp = nil
	}
	t.layer = LayerClosed
	return err
}

func (t *Transport) logEvent() *zap.Logger {
	if t.logger == nil {
		return zap.NewNop()
	}
	return t.logger.With(zap.String("transport_id", t.ID.String()))
}
