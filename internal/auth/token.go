// ABOUTME: Bearer token resolution and HS256 JWT minting for fold-call.
// ABOUTME: Resolves tokens from flag, env, config, or the shared fold token file.

package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// ResolveToken returns the bearer token for a call, trying in order: the
// explicit value (flag), the FOLD_TOKEN environment variable, the config
// file value, and finally the shared fold token file. Returns "" when no
// source has one; a token is not always required.
func ResolveToken(explicit, fromConfig string) string {
	if explicit != "" {
		return explicit
	}
	if token := os.Getenv("FOLD_TOKEN"); token != "" {
		return token
	}
	if fromConfig != "" {
		return fromConfig
	}
	return readTokenFile()
}

// readTokenFile reads ~/.config/fold/token (or the XDG equivalent),
// the same file the other fold clients use.
func readTokenFile() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	tokenPath := filepath.Join(configDir, "fold", "token")
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// Minter creates and verifies HS256 JWTs against a shared secret, for use
// against gateways running in dev mode.
type Minter struct {
	secret []byte
}

// NewMinter creates a Minter with the given secret.
func NewMinter(secret []byte) *Minter {
	return &Minter{secret: secret}
}

// Mint creates a new JWT for the given principal ID with expiration.
func (m *Minter) Mint(principalID string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": principalID,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify validates the token and extracts the principal ID from the "sub" claim.
func (m *Minter) Verify(tokenString string) (principalID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}
