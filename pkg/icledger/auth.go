package icledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/chainsafe/cknft-bridge/pkg/config"
	"github.com/golang-jwt/jwt/v5"
)

// tokenSource mints and caches the HS256 service token the orchestrator
// service expects as a bearer credential. Tokens are reused until shortly
// before expiry.
type tokenSource struct {
	cfg config.AuthConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(cfg config.AuthConfig) *tokenSource {
	return &tokenSource{cfg: cfg}
}

func (t *tokenSource) bearer() (string, error) {
	if t.cfg.Secret == "" {
		return "", nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Renew a minute early so an in-flight request never carries an expired token.
	if t.token != "" && time.Until(t.expires) > time.Minute {
		return t.token, nil
	}

	ttl := t.cfg.TokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.cfg.Issuer,
		Subject:   t.cfg.Subject,
		Audience:  jwt.ClaimStrings{t.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}

	t.token = signed
	t.expires = now.Add(ttl)
	return signed, nil
}
