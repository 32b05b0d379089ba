// Package tlsendpoint performs the in-place TLS upgrade of an RDP
// transport: it wraps an already-connected TCP socket with crypto/tls
// on both the client and server side, with optional certificate
// fingerprint pinning on the client side.
package tlsendpoint

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"net"
	"time"

	"github.com/cloudflare/cfssl/helpers"
	"go.uber.org/zap"
)

// Config carries the caller-supplied trust policy for a TLS upgrade.
type Config struct {
	// PinnedFingerprint, if non-empty, is the expected lowercase hex
	// SHA-256 fingerprint of the server's leaf certificate. A mismatch
	// is reported but does not by itself abort the handshake — the
	// decision to disconnect on mismatch belongs to the caller, not
	// this package.
	PinnedFingerprint  string
	ServerName         string
	InsecureSkipVerify bool
}

// Endpoint wraps a *tls.Conn to satisfy transport.Endpoint structurally
// (no import of the transport package: transport imports this one, so
// importing it back would be a cycle).
type Endpoint struct {
	conn        *tls.Conn
	blocking    bool
	peeked      []byte
	fingerprint string
}

// Dial performs the client-side TLS handshake over an already-open TCP
// connection, upgrading it in place.
func Dial(ctx context.Context, logger *zap.Logger, raw net.Conn, cfg Config) (*Endpoint, error) {
	tlsCfg := &tls.Config{
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify || cfg.ServerName == "",
	}

	conn := tls.Client(raw, tlsCfg)
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	fp, err := peerFingerprint(conn)
	if err != nil && logger != nil {
		logger.Warn("could not parse peer certificate for fingerprinting", zap.Error(err))
	}
	if logger != nil {
		logger.Info("tls handshake complete", zap.String("peer_fingerprint", fp))
	}
	if cfg.PinnedFingerprint != "" && fp != "" && fp != cfg.PinnedFingerprint {
		if logger != nil {
			logger.Warn("server certificate fingerprint changed since last connection",
				zap.String("expected", cfg.PinnedFingerprint),
				zap.String("got", fp))
		}
	}

	return &Endpoint{conn: conn, blocking: true, fingerprint: fp}, nil
}

// Accept is the server-side mirror used by Transport.AcceptTLS: it
// loads a certificate/key pair and serves it to the connecting client.
func Accept(ctx context.Context, logger *zap.Logger, raw net.Conn, certFile, keyFile string) (*Endpoint, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	conn := tls.Server(raw, tlsCfg)
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := conn.HandshakeContext(ctx); err != nil {
		if logger != nil {
			logger.Warn("failed to complete TLS handshake with the client", zap.Error(err))
		}
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return &Endpoint{conn: conn, blocking: true}, nil
}

// Fingerprint returns the peer leaf certificate's SHA-256 fingerprint
// captured at handshake time, or "" if it could not be parsed.
func (e *Endpoint) Fingerprint() string { return e.fingerprint }

// peerFingerprint re-parses the peer leaf certificate through cfssl's
// helpers and hashes its DER bytes only once that parse succeeds; the
// hashed bytes are the same DER bytes crypto/tls received.
func peerFingerprint(conn *tls.Conn) (string, error) {
	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return "", fmt.Errorf("no peer certificates presented")
	}
	leafDER := state.PeerCertificates[0].Raw
	leaf, err := helpers.ParseCertificatePEM(pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: leafDER,
	}))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(leaf.Raw)
	return hex.EncodeToString(sum[:]), nil
}

func (e *Endpoint) Read(buf []byte) (int, error) {
	if len(e.peeked) > 0 {
		n := copy(buf, e.peeked)
		e.peeked = e.peeked[n:]
		return n, nil
	}
	if !e.blocking {
		_ = e.conn.SetReadDeadline(time.Now().Add(1 * time.Millisecond))
	} else {
		_ = e.conn.SetReadDeadline(time.Time{})
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

func (e *Endpoint) Write(buf []byte) (int, error) { return e.conn.Write(buf) }

func (e *Endpoint) CanRecv(timeout time.Duration) bool {
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

func (e *Endpoint) SetBlocking(blocking bool) { e.blocking = blocking }
func (e *Endpoint) Close() error              { return e.conn.Close() }

// Sockfd returns -1: *tls.Conn wraps the TCP descriptor opaquely.
// Socket diagnostics (internal/sockinfo) operate on the pre-upgrade
// *net.TCPConn instead, captured before the layer moved to TLS.
func (e *Endpoint) Sockfd() int { return -1 }
