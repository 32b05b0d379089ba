// Package config carries the transport's read-only configuration
// surface — authentication policy, TLS material, and the ambient
// tuning knobs a CLI harness needs around them — loaded with
// github.com/spf13/viper by merging a default YAML document with an
// optional config file and environment overrides before unmarshalling.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultConfig is a string of defaults unmarshalled through viper
// rather than a Go struct literal, so a caller can override any subset
// from a file or flags without re-specifying the rest.
var defaultConfig = `
authentication: true
certFile: ""
privateKeyFile: ""
pinnedFingerprint: ""
idleBackoff: 100us
connectTimeout: 10s
logLevel: "info"
`

// Settings is the configuration surface Transport and its supporting
// packages consult. Nothing here is mutated once a Transport is
// constructed; the transport's perspective on it is strictly
// read-only.
type Settings struct {
	// Authentication gates whether UpgradeToNLA runs CredSSP at all.
	Authentication bool `mapstructure:"authentication"`
	// CertFile / PrivateKeyFile back AcceptTLS's server-side handshake.
	CertFile       string `mapstructure:"certFile"`
	PrivateKeyFile string `mapstructure:"privateKeyFile"`
	// PinnedFingerprintHex is the expected SHA-256 fingerprint of the
	// server's TLS leaf certificate, hex-encoded. Empty disables
	// pinning.
	PinnedFingerprintHex string `mapstructure:"pinnedFingerprint"`
	// IdleBackoff overrides the blocking-path idle sleep, otherwise a
	// constant 100us.
	IdleBackoff time.Duration `mapstructure:"idleBackoff"`
	// ConnectTimeout bounds the CLI harness's connect run: the
	// UpgradeToTLS/UpgradeToNLA handshake and the dispatch loop that
	// follows it. The TCP dial in ConnectTCP is not bounded by it.
	ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	LogLevel       string        `mapstructure:"logLevel"`
}

// PinnedFingerprint returns the configured fingerprint, or "" when
// pinning is disabled.
func (s *Settings) PinnedFingerprint() string {
	if s == nil {
		return ""
	}
	return s.PinnedFingerprintHex
}

// Load builds a Settings from defaults, an optional config file, and
// environment variables prefixed RDPGO_, in that precedence order.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("config: parse built-in defaults: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix("RDPGO")
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &s, nil
}

// Default returns the built-in defaults with no file or environment
// overlay, useful for tests and for callers without a config file.
func Default() *Settings {
	s, err := Load("")
	if err != nil {
		// The embedded default document is a compile-time constant;
		// a failure here means defaultConfig itself is malformed YAML,
		// a programmer error rather than a runtime condition.
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return s
}
