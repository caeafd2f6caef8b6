// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid reconnect token")

// Claims ties a player id (subject) to the match it belongs to.
type Claims struct {
	Match string `json:"match"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies reconnect tokens with an ed25519 key pair.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewIssuer generates a fresh key pair at runtime. Tokens issued before a
// restart are therefore rejected afterwards, matching the in-memory match
// lifetime. A ttl of 0 issues tokens without expiry.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// NewIssuerFromPath reads a raw ed25519 key pair from disk.
func NewIssuerFromPath(privatePath, publicPath string, ttl time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key files have unexpected sizes (%d, %d)", len(privateKeyData), len(publicKeyData))
	}
	return &Issuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token with sub = playerID for the given match.
func (i *Issuer) Issue(playerID, match string) (string, error) {
	now := i.now()
	claims := Claims{
		Match: match,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  playerID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// Verify checks tokenString and returns the player id and match code it carries.
func (i *Issuer) Verify(tokenString string) (playerID, match string, err error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.Match == "" {
		return "", "", fmt.Errorf("%w: missing sub or match", ErrInvalidToken)
	}
	return claims.Subject, claims.Match, nil
}
