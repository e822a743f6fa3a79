package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/quatton/qsys/pkg/qapi"
	"github.com/quatton/qsys/pkg/qapi/services"
	"github.com/quatton/qsys/pkg/qsdk"
	"github.com/quatton/qsys/pkg/qsdk/qerr"
	"github.com/quatton/qsys/pkg/qsys/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zalando/go-keyring"
)

// resetFlags restores every flag to its default and drops the context left by
// the previous run, so commands can be executed repeatedly within one test
// binary. Cobra only hands the root context to a subcommand whose own context
// is nil.
func resetFlags(c *cobra.Command) {
	c.SetContext(nil) //nolint:staticcheck // nil lets ExecuteContext propagate again
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t.Context(), args...)
}

func executeContext(ctx context.Context, args ...string) (string, error) {
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func startEmulator(t *testing.T, apiKey string) string {
	t.Helper()
	keyring.MockInit()

	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("QSYS_APIKEY", "")
	t.Setenv("QSYS_TOKEN", "")

	api := qapi.NewApi()
	api.Register(services.NewMemoryServices(apiKey, ""), nil)
	srv := httptest.NewServer(api.Router)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestParseJobRefs(t *testing.T) {
	got, err := parseJobRefs([]string{"jid-1:sys-1", " jid-2 : HVM--SN-1--MAC-0A "})
	if err != nil {
		t.Fatalf("parseJobRefs: %v", err)
	}
	if len(got) != 2 || got[0].JID != "jid-1" || got[1].SystemID != "HVM--SN-1--MAC-0A" {
		t.Fatalf("unexpected refs: %+v", got)
	}

	for _, bad := range [][]string{nil, {"no-colon"}, {":sys"}, {"jid:"}} {
		if _, err := parseJobRefs(bad); err == nil {
			t.Errorf("parseJobRefs(%q) should fail", bad)
		}
	}
}

func TestParseArguments(t *testing.T) {
	got, err := parseArguments([]string{`["A description"]`, `[]`, `[1, {"k": true}]`, `[9007199254740993]`})
	if err != nil {
		t.Fatalf("parseArguments: %v", err)
	}
	if len(got) != 4 || got[0][0] != "A description" || len(got[1]) != 0 || got[2][0] != json.Number("1") {
		t.Fatalf("unexpected arguments: %#v", got)
	}
	if got[3][0] != json.Number("9007199254740993") {
		t.Fatalf("unexpected arguments: %#v", got)
	}

	if got, _ := parseArguments(nil); got != nil {
		t.Fatalf("no --arg should leave arguments absent, got %#v", got)
	}
	if _, err := parseArguments([]string{`"not a list"`}); err == nil {
		t.Fatal("a non-array argument should fail")
	}
}

func TestRenderFormats(t *testing.T) {
	sum := models.JobSummaryResponse{ActiveCount: 2, FailedCount: 1}
	var buf bytes.Buffer
	if err := render(&buf, "json", sum, nil); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(buf.String(), `"activeCount": 2`) {
		t.Fatalf("json should use wire names: %s", buf.String())
	}

	buf.Reset()
	if err := render(&buf, "yaml", sum, nil); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "activeCount: 2") || !strings.Contains(buf.String(), "failedCount: 1") {
		t.Fatalf("yaml should use wire names: %s", buf.String())
	}

	if err := render(&buf, "xml", sum, nil); err == nil {
		t.Fatal("unknown formats should fail")
	}
}

func TestExplainError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{qerr.FromResponse(401, []byte(`{"error":{"message":"nope"}}`)), "qsysctl auth login"},
		{qerr.FromResponse(400, []byte(`{"error":{"name":"SystemsManagement.BadRequest","message":"invalid filter"}}`)), "SystemsManagement.BadRequest"},
		{qerr.New(qerr.CodeTransport, errors.New("connection refused")), "could not reach"},
		{errors.Join(errInBand, errors.New("x")), "error:"},
	}
	for _, tc := range cases {
		if got := explainError(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("explainError(%v) = %q, want it to mention %q", tc.err, got, tc.want)
		}
	}
}

func TestJobsCommands(t *testing.T) {
	srvURL := startEmulator(t, "secret")
	base := []string{"--base-url", srvURL, "--api-key", "secret", "-o", "json"}

	out, err := execute(t, append([]string{"jobs", "create", "--tgt", "sys-1", "--fun", "test.ping", "--arg", `["x"]`, "--metadata", `{"queued":true}`}, base...)...)
	if err != nil {
		t.Fatalf("jobs create: %v", err)
	}
	var created struct {
		JID string `json:"jid"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil || created.JID == "" {
		t.Fatalf("unexpected create output %q: %v", out, err)
	}

	out, err = execute(t, append([]string{"jobs", "list", "--jid", created.JID}, base...)...)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	if !strings.Contains(out, created.JID) {
		t.Fatalf("list output should contain the jid: %s", out)
	}

	out, err = execute(t, "jobs", "list", "--system-id", "Invalid_system_id", "--base-url", srvURL, "--api-key", "secret", "-o", "json")
	if err != nil || strings.TrimSpace(out) != "[]" {
		t.Fatalf("unknown system should print an empty list, got %q (%v)", out, err)
	}

	out, err = execute(t, "jobs", "summary", "--base-url", srvURL, "--api-key", "secret")
	if err != nil || !strings.Contains(out, "ACTIVE") {
		t.Fatalf("jobs summary table: %q (%v)", out, err)
	}

	_, err = execute(t, append([]string{"jobs", "query", "--filter", "jid=Invalid_jid"}, base...)...)
	if !qerr.IsCode(err, qerr.CodeBadRequest) {
		t.Fatalf("malformed filter should be a bad request, got %v", err)
	}

	_, err = execute(t, append([]string{"jobs", "cancel", "--job", "Invalid_jid:Invalid_tgt"}, base...)...)
	if !errors.Is(err, errInBand) {
		t.Fatalf("cancelling an unknown job should report the in-band error, got %v", err)
	}

	out, err = execute(t, "jobs", "cancel", "--job", created.JID+":sys-1", "--base-url", srvURL, "--api-key", "secret")
	if err != nil || !strings.Contains(out, "Canceled 1 job(s)") {
		t.Fatalf("jobs cancel: %q (%v)", out, err)
	}
}

func TestAuthLoginAndLogout(t *testing.T) {
	srvURL := startEmulator(t, "secret")

	if _, err := execute(t, "auth", "login", "--api-key", "wrong", "--base-url", srvURL); !qerr.IsCode(err, qerr.CodeUnauthorized) {
		t.Fatalf("a rejected key should fail login, got %v", err)
	}
	if key, _ := qsdk.LoadAPIKey(srvURL); key != "" {
		t.Fatalf("a rejected key must not be stored, got %q", key)
	}

	if _, err := execute(t, "auth", "login", "--api-key", "secret", "--base-url", srvURL); err != nil {
		t.Fatalf("auth login: %v", err)
	}
	if key, _ := qsdk.LoadAPIKey(srvURL); key != "secret" {
		t.Fatalf("expected the key in the keyring, got %q", key)
	}

	out, err := execute(t, "jobs", "summary", "--base-url", srvURL, "-o", "yaml")
	if err != nil || !strings.Contains(out, "activeCount: 0") {
		t.Fatalf("stored key should authenticate: %q (%v)", out, err)
	}

	out, err = execute(t, "auth", "status", "--base-url", srvURL)
	if err != nil || !strings.Contains(out, "(keyring)") || !strings.Contains(out, "authenticated") {
		t.Fatalf("auth status: %q (%v)", out, err)
	}

	if _, err := execute(t, "auth", "logout", "--base-url", srvURL); err != nil {
		t.Fatalf("auth logout: %v", err)
	}
	if key, _ := qsdk.LoadAPIKey(srvURL); key != "" {
		t.Fatalf("logout should remove the key, got %q", key)
	}
}

func TestQueryExportRequiresStorage(t *testing.T) {
	srvURL := startEmulator(t, "")

	_, err := execute(t, "jobs", "query", "--export", "nightly", "--base-url", srvURL)
	if err == nil || !strings.Contains(err.Error(), "export.bucket") {
		t.Fatalf("export without storage config should explain what is missing, got %v", err)
	}
}

func TestCommandsIgnorePreviousRunContext(t *testing.T) {
	srvURL := startEmulator(t, "")

	ctx, cancel := context.WithCancel(t.Context())
	if _, err := executeContext(ctx, "jobs", "summary", "--base-url", srvURL); err != nil {
		t.Fatalf("first run: %v", err)
	}
	cancel()

	if _, err := execute(t, "jobs", "summary", "--base-url", srvURL); err != nil {
		t.Fatalf("a run after the previous context was canceled should succeed: %v", err)
	}
}

func TestJobsCreateKeepsLargeIntegers(t *testing.T) {
	srvURL := startEmulator(t, "")

	out, err := execute(t, "jobs", "create", "--tgt", "sys-1", "--fun", "test.ping",
		"--arg", `[9007199254740993]`, "--metadata", `{"build":12345678901234567}`,
		"--base-url", srvURL, "-o", "json")
	if err != nil {
		t.Fatalf("jobs create: %v", err)
	}
	for _, want := range []string{"9007199254740993", "12345678901234567"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should carry %s unchanged: %s", want, out)
		}
	}
}

func TestExportMetadataIsASCII(t *testing.T) {
	req := models.QueryJobsRequest{Filter: `config.user = "José" && state = "FAILED"`}
	meta := exportMetadata(req, &models.QueryJobsResponse{Count: 2})

	if meta["count"] != "2" {
		t.Fatalf("count = %q", meta["count"])
	}
	for _, r := range meta["filter"] {
		if r > 127 {
			t.Fatalf("filter metadata must be ASCII, got %q", meta["filter"])
		}
	}
	if back, err := url.QueryUnescape(meta["filter"]); err != nil || back != req.Filter {
		t.Fatalf("filter should unescape to the original, got %q (%v)", back, err)
	}

	if _, ok := exportMetadata(models.QueryJobsRequest{}, &models.QueryJobsResponse{})["filter"]; ok {
		t.Fatal("an empty filter should not be recorded")
	}
}
