package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module names used to scope debug verbosity per component.
const (
	ModuleTransport = "transport"
	ModuleTLS       = "tls"
	ModuleCredSSP   = "credssp"
	ModuleCLI       = "cli"
)

// ModuleLoggerFactory hands out *zap.Logger instances scoped to a
// named module, with debug-level output gated per module rather than
// globally — useful when only the TLS handshake or only CredSSP needs
// verbose logging during a field investigation.
type ModuleLoggerFactory struct {
	base        *zap.Logger
	globalDebug bool
	moduleDebug map[string]bool
}

// NewModuleLoggerFactory builds a factory over base. When globalDebug
// is true every module gets debug-level output regardless of
// moduleDebug. moduleDebug may be nil.
func NewModuleLoggerFactory(base *zap.Logger, globalDebug bool, moduleDebug map[string]bool) *ModuleLoggerFactory {
	return &ModuleLoggerFactory{base: base, globalDebug: globalDebug, moduleDebug: moduleDebug}
}

// IsDebugEnabled reports whether module should emit debug-level logs.
func (f *ModuleLoggerFactory) IsDebugEnabled(module string) bool {
	if f.globalDebug {
		return true
	}
	return f.moduleDebug[module]
}

// GetLogger returns a logger tagged with module, with debug-level
// records filtered out unless IsDebugEnabled(module).
func (f *ModuleLoggerFactory) GetLogger(module string) *zap.Logger {
	tagged := f.base.With(zap.String("module", module))
	if f.IsDebugEnabled(module) {
		return tagged
	}
	return tagged.WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))
}
