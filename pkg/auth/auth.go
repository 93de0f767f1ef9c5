// Package auth resolves the bearer tokens used to reach destinations and the
// upstream identity authority.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/authzed/connector-scim/pkg/config"
)

// Direction is which way a call flows relative to the upstream authority.
type Direction string

const (
	// Outbound calls provision into a destination.
	Outbound Direction = "outbound"
	// Inbound calls pull records from a destination or push them upstream.
	Inbound Direction = "inbound"
)

// Kinds of token configuration understood by ConfigTokenSource.
const (
	KindNone   = "none"
	KindStatic = "static"
	KindEnv    = "env"
)

// TokenSource returns the token to present for a tenant's auth config.
type TokenSource interface {
	GetToken(ctx context.Context, cfg config.Auth, direction Direction) (string, error)
}

// ConfigTokenSource reads tokens straight from config: either a literal token
// or the name of an environment variable holding it.
type ConfigTokenSource struct {
	// Getenv looks up environment variables; os.Getenv when nil.
	Getenv func(string) string
}

var _ TokenSource = ConfigTokenSource{}

func (s ConfigTokenSource) GetToken(_ context.Context, cfg config.Auth, direction Direction) (string, error) {
	kind := strings.ToLower(cfg.Kind)
	if kind == "" {
		switch {
		case cfg.Token != "":
			kind = KindStatic
		case cfg.TokenEnv != "":
			kind = KindEnv
		default:
			kind = KindNone
		}
	}

	switch kind {
	case KindNone:
		return "", nil
	case KindStatic, "bearer":
		if cfg.Token == "" {
			return "", fmt.Errorf("%s auth: static token is empty", direction)
		}
		return cfg.Token, nil
	case KindEnv:
		getenv := s.Getenv
		if getenv == nil {
			getenv = os.Getenv
		}
		if cfg.TokenEnv == "" {
			return "", fmt.Errorf("%s auth: no token environment variable set", direction)
		}
		token := getenv(cfg.TokenEnv)
		if token == "" {
			return "", fmt.Errorf("%s auth: environment variable %s is empty", direction, cfg.TokenEnv)
		}
		return token, nil
	}
	return "", fmt.Errorf("%s auth: unsupported kind %q", direction, cfg.Kind)
}

// Static always returns the same token.
type Static string

var _ TokenSource = Static("")

func (s Static) GetToken(context.Context, config.Auth, Direction) (string, error) {
	return string(s), nil
}
