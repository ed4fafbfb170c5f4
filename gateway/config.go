// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the gateway's environment-driven settings.
type Config struct {
	// Issuer is the provider's discovery URL.
	Issuer string `env:"AUTHGATE_ISSUER"`

	// ClientID and ClientSecret are the relying party's registered
	// credentials.
	ClientID     string `env:"AUTHGATE_CLIENT_ID"`
	ClientSecret string `env:"AUTHGATE_CLIENT_SECRET"`

	// AppURL is the gateway's externally visible base URL.
	AppURL string `env:"AUTHGATE_APP_URL" env-default:"http://localhost:3000"`

	// RedirectURL is the registered callback URL.  When empty it defaults
	// to AppURL + "/auth/callback".
	RedirectURL string `env:"AUTHGATE_REDIRECT_URL"`

	// Scopes is a space-separated scope list; "openid" is always requested.
	Scopes string `env:"AUTHGATE_SCOPES" env-default:"phone openid email"`

	// LogoutEndpoint is a provider logout URL for providers that don't
	// advertise one via discovery (for example Cognito's hosted UI).
	LogoutEndpoint string `env:"AUTHGATE_LOGOUT_ENDPOINT"`

	// ListenAddr is the gateway's HTTP listen address.
	ListenAddr string `env:"AUTHGATE_LISTEN_ADDR" env-default:":3000"`

	// SessionTTL is the server-side session lifetime.
	SessionTTL time.Duration `env:"AUTHGATE_SESSION_TTL" env-default:"24h"`

	// LogLevel is the hclog level name.
	LogLevel string `env:"AUTHGATE_LOG_LEVEL" env-default:"info"`
}

// ReadConfig loads the configuration from the environment and applies the
// derived defaults.
func ReadConfig() (*Config, error) {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, err
	}
	if c.RedirectURL == "" {
		c.RedirectURL = strings.TrimSuffix(c.AppURL, "/") + "/auth/callback"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every missing required setting, not just the first.
func (c *Config) Validate() error {
	var result *multierror.Error
	for _, required := range []struct {
		name  string
		value string
	}{
		{"AUTHGATE_ISSUER", c.Issuer},
		{"AUTHGATE_CLIENT_ID", c.ClientID},
		{"AUTHGATE_CLIENT_SECRET", c.ClientSecret},
		{"AUTHGATE_APP_URL", c.AppURL},
	} {
		if required.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", required.name))
		}
	}
	return result.ErrorOrNil()
}

// ScopeList splits the configured scopes on whitespace.
func (c *Config) ScopeList() []string {
	return strings.Fields(c.Scopes)
}
