package config

import (
	"strings"
	"time"
)

// DispatchConfig controls how job invocations reach the remote application modules.
// All fields are read with the DISPATCH_ prefix.
type DispatchConfig struct {
	// GatewayURL is the base URL used when a module has no explicit route; the
	// module code is appended as the first path segment.
	GatewayURL string `env:"GATEWAY_URL" envDefault:"http://localhost:9000"`

	// ModuleRoutes maps module codes to base URLs, e.g. "billing=http://billing:8080,crm=http://crm".
	ModuleRoutes map[string]string `env:"MODULE_ROUTES" envKeyValSeparator:"="`

	// Timeout bounds a single remote invocation.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`

	// SuccessExpr is an optional JMESPath expression selecting the success flag from the response body.
	SuccessExpr string `env:"SUCCESS_EXPR"`

	// MessageExpr is an optional JMESPath expression selecting the message from the response body.
	MessageExpr string `env:"MESSAGE_EXPR"`

	// Auth configures OAuth2 client-credentials tokens on outbound requests.
	Auth DispatchAuthConfig `envPrefix:"AUTH_"`
}

// Sanitize normalises dispatch configuration values.
func (c *DispatchConfig) Sanitize() {
	c.GatewayURL = strings.TrimRight(strings.TrimSpace(c.GatewayURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	c.SuccessExpr = strings.TrimSpace(c.SuccessExpr)
	c.MessageExpr = strings.TrimSpace(c.MessageExpr)

	routes := make(map[string]string, len(c.ModuleRoutes))
	for k, v := range c.ModuleRoutes {
		key := strings.TrimSpace(k)
		val := strings.TrimRight(strings.TrimSpace(v), "/")
		if key == "" || val == "" {
			continue
		}
		routes[key] = val
	}
	c.ModuleRoutes = routes

	c.Auth.sanitize()
}

// DispatchAuthConfig configures the OAuth2 client-credentials flow for dispatch calls.
// When TokenURL is empty and IssuerURL is set, the token endpoint is discovered via OIDC.
type DispatchAuthConfig struct {
	Enabled      bool     `env:"ENABLED"       envDefault:"false"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	TokenURL     string   `env:"TOKEN_URL"`
	IssuerURL    string   `env:"ISSUER_URL"`
	Scopes       []string `env:"SCOPES"        envSeparator:","`
}

func (c *DispatchAuthConfig) sanitize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.TokenURL = strings.TrimSpace(c.TokenURL)
	c.IssuerURL = strings.TrimSpace(c.IssuerURL)
	if c.ClientID == "" || (c.TokenURL == "" && c.IssuerURL == "") {
		c.Enabled = false
	}
}
