package qsdk

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the display view of a bearer token. It is parsed without
// verification and must not be used for authorization.
type TokenClaims struct {
	Subject string
	Issuer  string
	Expires time.Time
}

// ParseTokenClaims extracts raw claims from a JWT without verifying its
// signature.
func ParseTokenClaims(tokenStr string) (jwt.MapClaims, error) {
	var claims jwt.MapClaims
	parser := new(jwt.Parser)
	_, _, err := parser.ParseUnverified(tokenStr, &claims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func FromToken(tokenStr string) (*TokenClaims, error) {
	mc, err := ParseTokenClaims(tokenStr)
	if err != nil {
		return nil, err
	}

	tc := &TokenClaims{}
	if tc.Subject, err = mc.GetSubject(); err != nil {
		return nil, fmt.Errorf("reading sub claim: %w", err)
	}
	if tc.Issuer, err = mc.GetIssuer(); err != nil {
		return nil, fmt.Errorf("reading iss claim: %w", err)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp != nil {
		tc.Expires = exp.Time
	}
	return tc, nil
}

// IsTokenExpired reports whether the token's exp lies within skew of now.
// Tokens without exp never expire.
func IsTokenExpired(tokenStr string, skew time.Duration) (bool, error) {
	tc, err := FromToken(tokenStr)
	if err != nil {
		return false, err
	}
	if tc.Expires.IsZero() {
		return false, nil
	}
	return time.Now().Add(skew).After(tc.Expires), nil
}
