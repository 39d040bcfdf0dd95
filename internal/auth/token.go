package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the fixed iss claim on every token this service signs.
const Issuer = "https://gewis.nl/"

// SigningMode selects the signature algorithm of a token.
type SigningMode int

const (
	// ModeSession is the asymmetric variant used for first-party session
	// cookies: the private key signs, the public key verifies.
	ModeSession SigningMode = iota

	// ModeDelegated is the symmetric variant for short-lived tokens handed
	// to registered applications, keyed by the application's shared secret.
	ModeDelegated
)

// Claims is the wire-level payload of a signed token. The nonce makes
// every token unique but is not checked against a replay cache; tokens
// are only protected by their short expiry.
type Claims struct {
	Lidnr string `json:"lidnr"`
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given subject, valid for ttl from now.
// key must be a *rsa.PrivateKey for ModeSession and a []byte secret for
// ModeDelegated.
func Issue(subject string, ttl time.Duration, mode SigningMode, key any) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be greater than zero", ErrInvalidInput)
	}
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := Claims{
		Lidnr: subject,
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	var token *jwt.Token
	switch mode {
	case ModeSession:
		if _, ok := key.(*rsa.PrivateKey); !ok {
			return "", fmt.Errorf("%w: session tokens require an RSA private key", ErrInvalidInput)
		}
		token = jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	case ModeDelegated:
		if _, ok := key.([]byte); !ok {
			return "", fmt.Errorf("%w: delegated tokens require a shared secret", ErrInvalidInput)
		}
		token = jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	default:
		return "", fmt.Errorf("unknown signing mode %d", mode)
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry of a token. key must be a
// *rsa.PublicKey for ModeSession and a []byte secret for ModeDelegated.
// Malformed structure, an unexpected algorithm, a bad signature and a
// passed expiry all fail with ErrInvalidToken; there is no clock-skew
// leeway on expiry.
func Verify(tokenString string, mode SigningMode, key any) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		switch mode {
		case ModeSession:
			if t.Method != jwt.SigningMethodRS256 {
				return nil, ErrInvalidToken
			}
		case ModeDelegated:
			if t.Method != jwt.SigningMethodHS256 {
				return nil, ErrInvalidToken
			}
		default:
			return nil, ErrInvalidToken
		}
		return key, nil
	}, jwt.WithIssuer(Issuer), jwt.WithIssuedAt())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Lidnr) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
