package qsdk

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quatton/qsys/pkg/qlog"
	"github.com/quatton/qsys/pkg/qsdk/qerr"
	"github.com/quatton/qsys/pkg/qsys"
	"golang.org/x/oauth2"
)

// Sdk wires config, stored credentials and the HTTP transport into a
// ready-to-use job client so CLI commands don't assemble them themselves.
type Sdk struct {
	Jobs    *qsys.SystemClient
	BaseURL string
	APIKey  string
	Token   string
}

// ClearCredentials removes the stored API key for the SDK's base URL and
// resets the in-memory copies.
func (s *Sdk) ClearCredentials() {
	if s == nil || s.BaseURL == "" {
		return
	}
	_ = DeleteAPIKey(s.BaseURL)
	s.APIKey = ""
	s.Token = ""
}

// HandleUnauthorized clears cached credentials when err is a 401 from the
// service. It returns true in that case so callers can print guidance.
func (s *Sdk) HandleUnauthorized(err error) bool {
	if qerr.StatusOf(err) != http.StatusUnauthorized {
		return false
	}
	s.ClearCredentials()
	return true
}

// NewSdk builds a client from cfg. The API key comes from config, falling back
// to the keyring entry for the base URL. A bearer token, when configured, is
// checked for expiry before any request is made.
func NewSdk(cfg *Config, logger *qlog.Logger) (*Sdk, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = qlog.NewNop()
	}

	sdk := &Sdk{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Token:   cfg.Token,
	}

	if sdk.APIKey == "" {
		key, err := LoadAPIKey(cfg.BaseURL)
		if err != nil {
			logger.Debug("keyring unavailable", "error", err)
		}
		sdk.APIKey = key
	}

	if sdk.Token != "" {
		expired, err := IsTokenExpired(sdk.Token, 30*time.Second)
		if err != nil {
			return nil, qerr.New(qerr.CodeUnauthorized, fmt.Errorf("parsing token: %w", err))
		}
		if expired {
			return nil, qerr.New(qerr.CodeExpiredToken, errors.New("bearer token has expired"))
		}
	}

	opts := []qsys.TransportOption{
		qsys.WithHTTPClient(sdk.httpClient(cfg)),
		qsys.WithLogger(logger),
	}
	if sdk.APIKey != "" {
		opts = append(opts, qsys.WithAPIKey(sdk.APIKey))
	}

	transport, err := qsys.NewHTTPTransport(cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	sdk.Jobs = qsys.NewSystemClient(transport)
	return sdk, nil
}

func (s *Sdk) httpClient(cfg *Config) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Insecure {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client := &http.Client{Transport: base, Timeout: cfg.Timeout}
	if s.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: s.Token,
			TokenType:   "Bearer",
		}))
		client.Timeout = cfg.Timeout
	}
	return client
}
