package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

// KeyLookupFunc is used to map a JWT key id (kid) to the matching public key.
// It allows key rotation without changing the verification code.
type KeyLookupFunc func(kid string) (*rsa.PublicKey, error)

// NewSimpleKeyLookupFunc returns a lookup function that knows a single
// active key
func NewSimpleKeyLookupFunc(activeKID string, publicKey *rsa.PublicKey) KeyLookupFunc {
	return func(kid string) (*rsa.PublicKey, error) {
		if kid != activeKID {
			return nil, fmt.Errorf("unrecognized kid %q", kid)
		}
		return publicKey, nil
	}
}

// Authenticator is used to sign session tokens and holds the echo-jwt
// configuration used to verify them on protected routes
type Authenticator struct {
	privateKey *rsa.PrivateKey
	keyID      string
	method     jwt.SigningMethod

	// JWTConfig is plugged into echojwt.WithConfig on protected routes
	JWTConfig echojwt.Config
}

// NewAuthenticator creates an Authenticator for the given private key and
// algorithm (for example RS256)
func NewAuthenticator(privateKey *rsa.PrivateKey, keyID, algorithm string, publicKeyLookup KeyLookupFunc) (*Authenticator, error) {
	if privateKey == nil {
		return nil, errors.New("private key cannot be nil")
	}
	if keyID == "" {
		return nil, errors.New("key id cannot be blank")
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}

	keyFunc := func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, errors.New("missing key id (kid) in token header")
		}
		return publicKeyLookup(kid)
	}

	a := &Authenticator{
		privateKey: privateKey,
		keyID:      keyID,
		method:     method,
		JWTConfig: echojwt.Config{
			SigningMethod: algorithm,
			KeyFunc:       keyFunc,
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(Claims)
			},
		},
	}

	return a, nil
}

// GenerateToken signs the claims into a session token string
func (a *Authenticator) GenerateToken(claims *Claims) (string, error) {
	tkn := jwt.NewWithClaims(a.method, claims)
	tkn.Header["kid"] = a.keyID

	str, err := tkn.SignedString(a.privateKey)
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}

	return str, nil
}
