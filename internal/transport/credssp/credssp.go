// Package credssp implements a minimal CredSSP/NLA negotiation stub
// used during the TLS-to-session handoff: a TSRequest negotiate token
// is sent and a challenge is read back through the transport's own
// ReadOne/Write primitives, without constructing real SPNEGO/NTLMv2
// payloads.
package credssp

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// transportDriver is the minimal slice of *transport.Transport this
// package needs: write one PDU, read one PDU. Declared locally to
// avoid importing the transport package (transport imports credssp
// to call Authenticate, so the dependency only runs one way).
type transportDriver interface {
	Write(ctx context.Context, buf []byte) (int, error)
	ReadOnePDU(ctx context.Context) ([]byte, error)
}

// Authenticator is the contract Transport.UpgradeToNLA drives.
type Authenticator interface {
	Authenticate(ctx context.Context, t transportDriver) error
	AuthenticateServer(ctx context.Context, t transportDriver) error
}

// credSSP is the stub implementation: it exchanges a negotiate/
// challenge pair of TSRequest PDUs and treats a well-formed challenge
// as authentication success. A production client would carry
// credentials, build real NTLMv2/SPNEGO tokens, and verify the
// server's public-key echo; constructing those payloads is a policy
// decision left to the upper layer, not this package.
type credSSP struct {
	logger *zap.Logger
}

// New constructs the CredSSP authenticator that UpgradeToNLA/AcceptNLA
// drive to completion over an already-upgraded TLS transport.
func New(logger *zap.Logger) Authenticator {
	return &credSSP{logger: logger}
}

func (c *credSSP) Authenticate(ctx context.Context, t transportDriver) error {
	negotiate := buildNegotiateToken()
	if _, err := t.Write(ctx, negotiate); err != nil {
		return fmt.Errorf("credssp: send negotiate token: %w", err)
	}

	challenge, err := t.ReadOnePDU(ctx)
	if err != nil {
		return fmt.Errorf("credssp: read challenge token: %w", err)
	}
	if !looksLikeTSRequest(challenge) {
		return fmt.Errorf("credssp: challenge response is not a TSRequest")
	}

	if c.logger != nil {
		c.logger.Debug("credssp negotiation exchanged",
			zap.Int("negotiate_len", len(negotiate)),
			zap.Int("challenge_len", len(challenge)))
	}
	return nil
}

func (c *credSSP) AuthenticateServer(ctx context.Context, t transportDriver) error {
	negotiate, err := t.ReadOnePDU(ctx)
	if err != nil {
		return fmt.Errorf("credssp: read negotiate token: %w", err)
	}
	if !looksLikeTSRequest(negotiate) {
		return fmt.Errorf("credssp: negotiate token is not a TSRequest")
	}
	challenge := buildNegotiateToken()
	if _, err := t.Write(ctx, challenge); err != nil {
		return fmt.Errorf("credssp: send challenge token: %w", err)
	}
	return nil
}

// buildNegotiateToken returns a minimal, well-formed empty TSRequest
// SEQUENCE (tag 0x30, short-form zero-length body) — enough to
// exercise the transport's framing, deliberately not a real NTLMv2
// negotiate blob.
func buildNegotiateToken() []byte {
	return []byte{0x30, 0x00}
}

func looksLikeTSRequest(buf []byte) bool {
	return len(buf) >= 1 && buf[0] == 0x30
}
