package qsdk

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quatton/qsys/pkg/qsdk/qerr"
	"github.com/zalando/go-keyring"
)

type seenHeaders struct {
	apiKey string
	auth   string
}

func summaryServer(t *testing.T, status int) (*httptest.Server, *seenHeaders) {
	t.Helper()
	seen := &seenHeaders{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.apiKey = r.Header.Get("x-ni-api-key")
		seen.auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"activeCount":1,"failedCount":0,"succeededCount":2}`))
			return
		}
		w.Write([]byte(`{"error":{"name":"Unauthorized","code":-251041,"message":"missing api key"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	if err := SaveAPIKey("https://Example.com/", "k-1"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}
	got, err := LoadAPIKey("https://example.com")
	if err != nil || got != "k-1" {
		t.Fatalf("LoadAPIKey = %q, %v", got, err)
	}
	if err := DeleteAPIKey("https://example.com"); err != nil {
		t.Fatalf("DeleteAPIKey: %v", err)
	}
	got, err = LoadAPIKey("https://example.com")
	if err != nil || got != "" {
		t.Fatalf("expected empty key after delete, got %q, %v", got, err)
	}
	if err := DeleteAPIKey("https://example.com"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestNewSdkUsesStoredAPIKey(t *testing.T) {
	keyring.MockInit()
	srv, seen := summaryServer(t, http.StatusOK)

	if err := SaveAPIKey(srv.URL, "stored-key"); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}

	sdk, err := NewSdk(&Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewSdk: %v", err)
	}
	summary, err := sdk.Jobs.GetJobSummary(t.Context())
	if err != nil {
		t.Fatalf("GetJobSummary: %v", err)
	}
	if seen.apiKey != "stored-key" {
		t.Fatalf("expected stored key on the wire, got %q", seen.apiKey)
	}
	if summary.SucceededCount != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestNewSdkConfigKeyWins(t *testing.T) {
	keyring.MockInit()
	srv, seen := summaryServer(t, http.StatusOK)
	SaveAPIKey(srv.URL, "stored-key")

	sdk, err := NewSdk(&Config{BaseURL: srv.URL, APIKey: "config-key"}, nil)
	if err != nil {
		t.Fatalf("NewSdk: %v", err)
	}
	if _, err := sdk.Jobs.GetJobSummary(t.Context()); err != nil {
		t.Fatalf("GetJobSummary: %v", err)
	}
	if seen.apiKey != "config-key" {
		t.Fatalf("expected config key, got %q", seen.apiKey)
	}
}

func TestNewSdkSendsBearerToken(t *testing.T) {
	keyring.MockInit()
	srv, seen := summaryServer(t, http.StatusOK)
	token := signToken(t, jwt.MapClaims{"sub": "ci", "exp": float64(time.Now().Add(time.Hour).Unix())})

	sdk, err := NewSdk(&Config{BaseURL: srv.URL, Token: token}, nil)
	if err != nil {
		t.Fatalf("NewSdk: %v", err)
	}
	if _, err := sdk.Jobs.GetJobSummary(t.Context()); err != nil {
		t.Fatalf("GetJobSummary: %v", err)
	}
	if seen.auth != "Bearer "+token {
		t.Fatalf("expected bearer header, got %q", seen.auth)
	}
}

func TestNewSdkRejectsExpiredToken(t *testing.T) {
	keyring.MockInit()
	token := signToken(t, jwt.MapClaims{"sub": "ci", "exp": float64(time.Now().Add(-time.Hour).Unix())})

	_, err := NewSdk(&Config{BaseURL: "http://localhost:1", Token: token}, nil)
	if !qerr.IsCode(err, qerr.CodeExpiredToken) {
		t.Fatalf("expected expired_token, got %v", err)
	}
}

func TestHandleUnauthorizedClearsKey(t *testing.T) {
	keyring.MockInit()
	srv, _ := summaryServer(t, http.StatusUnauthorized)
	SaveAPIKey(srv.URL, "revoked")

	sdk, err := NewSdk(&Config{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewSdk: %v", err)
	}
	_, err = sdk.Jobs.GetJobSummary(t.Context())
	if !qerr.IsCode(err, qerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !sdk.HandleUnauthorized(err) {
		t.Fatal("expected HandleUnauthorized to report 401")
	}
	if key, _ := LoadAPIKey(srv.URL); key != "" {
		t.Fatalf("expected key to be cleared, got %q", key)
	}
	if sdk.HandleUnauthorized(qerr.New(qerr.CodeTransport, http.ErrHandlerTimeout)) {
		t.Fatal("non-401 errors must not clear credentials")
	}
}
