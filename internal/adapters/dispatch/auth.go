package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/target/mmk-task-service/config"
)

// newHTTPClient returns the outbound client; with auth enabled it attaches
// client-credentials bearer tokens to every request.
func newHTTPClient(ctx context.Context, cfg config.DispatchConfig) (*http.Client, error) {
	base := &http.Client{Timeout: cfg.Timeout}
	if !cfg.Auth.Enabled {
		return base, nil
	}

	tokenURL, err := resolveTokenURL(ctx, cfg.Auth, base)
	if err != nil {
		return nil, err
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       cfg.Auth.Scopes,
	}
	// Token refreshes run on later requests, so the source must not inherit ctx's deadline.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base)
	client := cc.Client(tokenCtx)
	client.Timeout = cfg.Timeout
	return client, nil
}

func resolveTokenURL(ctx context.Context, auth config.DispatchAuthConfig, hc *http.Client) (string, error) {
	if auth.TokenURL != "" {
		return auth.TokenURL, nil
	}
	if auth.IssuerURL == "" {
		return "", errors.New("dispatch auth: token URL or issuer URL is required")
	}

	issuer := strings.TrimSuffix(auth.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	provider, err := gooidc.NewProvider(gooidc.ClientContext(ctx, hc), issuer)
	if err != nil {
		return "", fmt.Errorf("oidc discovery: %w", err)
	}
	tokenURL := provider.Endpoint().TokenURL
	if tokenURL == "" {
		return "", fmt.Errorf("oidc discovery: issuer %s advertises no token endpoint", issuer)
	}
	return tokenURL, nil
}
