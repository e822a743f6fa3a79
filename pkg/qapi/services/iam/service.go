package iam

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenAudience is the audience claim on tokens minted by IssueToken.
const TokenAudience = "qsys"

var ErrUnauthenticated = errors.New("authentication required")

// IAMService checks the credentials of incoming requests. With neither an
// API key nor a secret configured every request is let through.
type IAMService struct {
	apiKey    string
	jwtSecret []byte
}

func NewIAMService(apiKey, secret string) *IAMService {
	s := &IAMService{apiKey: apiKey}
	if secret != "" {
		s.jwtSecret = []byte(secret)
	}
	return s
}

// Enabled reports whether any credential is required.
func (s *IAMService) Enabled() bool {
	return s != nil && (s.apiKey != "" || len(s.jwtSecret) > 0)
}

// Authenticate accepts either a matching API key or a valid bearer token.
func (s *IAMService) Authenticate(apiKey, bearer string) (*Principal, error) {
	if apiKey != "" && s.apiKey != "" {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.apiKey)) == 1 {
			return &Principal{Subject: "api-key", Method: MethodAPIKey}, nil
		}
		return nil, fmt.Errorf("%w: invalid api key", ErrUnauthenticated)
	}
	if bearer != "" && len(s.jwtSecret) > 0 {
		sub, err := s.ValidateToken(bearer)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return &Principal{Subject: sub, Method: MethodBearer}, nil
	}
	return nil, ErrUnauthenticated
}

// IssueToken mints an HS256 token for subject, valid for ttl.
func (s *IAMService) IssueToken(subject string, ttl time.Duration) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", errors.New("no signing secret configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "qsys",
		Audience:  jwt.ClaimStrings{TokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken verifies signature, expiry and audience and returns the
// subject.
func (s *IAMService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithAudience(TokenAudience), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
