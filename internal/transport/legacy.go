package transport

import "context"

// ConnectRDP and AcceptRDP are the legacy-RDP-encryption entry points
// alongside the TLS/NLA upgrade paths. Legacy (non-TLS, non-NLA) RDP
// Standard Security is not implemented; both are permanent no-ops that
// report success so a caller targeting that negotiation path does not
// need a separate code branch.
func (t *Transport) ConnectRDP(context.Context) error { return nil }
func (t *Transport) AcceptRDP(context.Context) error  { return nil }
