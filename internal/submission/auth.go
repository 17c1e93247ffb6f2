package submission

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// AuthConfig configures bearer-token verification against an identity
// provider. An empty Domain disables authentication entirely.
type AuthConfig struct {
	Domain     string
	Audience   string
	Issuer     string
	Algorithms []string
}

// Enabled reports whether token verification is configured.
func (c AuthConfig) Enabled() bool {
	return c.Domain != ""
}

const jwksCacheTTL = 5 * time.Minute

// NewAuthGuard builds a Guard that verifies JWT bearer tokens using the
// identity provider's published signing keys. Returns a nil Guard when
// authentication is disabled.
func NewAuthGuard(cfg AuthConfig) (Guard, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "https://" + cfg.Domain + "/"
	}
	issuerURL, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("parsing issuer URL: %w", err)
	}

	// The validator accepts a single signature algorithm; use the first
	// configured one.
	algorithm := validator.RS256
	if len(cfg.Algorithms) > 0 && cfg.Algorithms[0] != "" {
		algorithm = validator.SignatureAlgorithm(cfg.Algorithms[0])
	}

	provider := jwks.NewCachingProvider(issuerURL, jwksCacheTTL)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		algorithm,
		issuerURL.String(),
		[]string{cfg.Audience},
	)
	if err != nil {
		return nil, fmt.Errorf("configuring token validator: %w", err)
	}

	middleware := jwtmiddleware.New(jwtValidator.ValidateToken)
	return func(next http.HandlerFunc) http.HandlerFunc {
		wrapped := middleware.CheckJWT(next)
		return func(w http.ResponseWriter, r *http.Request) {
			wrapped.ServeHTTP(w, r)
		}
	}, nil
}

// ClaimsFromContext returns the verified token claims for the request, or
// nil when authentication is disabled or the route is unguarded.
func ClaimsFromContext(ctx context.Context) *validator.ValidatedClaims {
	claims, _ := ctx.Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	return claims
}
