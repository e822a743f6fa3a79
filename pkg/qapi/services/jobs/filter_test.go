package jobs

import (
	"errors"
	"testing"

	"github.com/quatton/qsys/pkg/jobstore"
	"github.com/quatton/qsys/pkg/qsys/models"
)

var filterJob = &jobstore.Job{
	JID:       "6f1c1d2e-8a8b-4c1e-9d4f-0a1b2c3d4e5f",
	SystemID:  "HVM_domU--SN-ec200972--MAC-0A-E1-20-D6-96-2B",
	State:     models.JobStateInQueue,
	User:      "admin",
	Targets:   []string{"HVM_domU--SN-ec200972--MAC-0A-E1-20-D6-96-2B"},
	Functions: []string{"system.set_computer_desc", "test.ping"},
	Metadata: map[string]any{
		"queued":               true,
		"priority":             float64(3),
		"refresh_minion_cache": map[string]any{"grains": true},
		"tags":                 []any{"nightly", "lab"},
	},
}

func TestParseFilterMatches(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{``, true},
		{`config.fun.Contains("system.set_computer_desc")`, true},
		{`config.fun.Contains("system.set_computer_asc")`, false},
		{`jid=6f1c1d2e-8a8b-4c1e-9d4f-0a1b2c3d4e5f`, true},
		{`jid == "6f1c1d2e-8a8b-4c1e-9d4f-0a1b2c3d4e5f"`, true},
		{`jid="Invalid_jid"`, false},
		{`state != "CANCELED"`, true},
		{`id.StartsWith("HVM_domU")`, true},
		{`id.EndsWith("2B") && config.user = "admin"`, true},
		{`state = "FAILED" || state = "INQUEUE"`, true},
		{`!(state = "INQUEUE")`, false},
		{`not state = "INQUEUE" or config.tgt.Contains("HVM_domU--SN-ec200972--MAC-0A-E1-20-D6-96-2B")`, true},
		{`metadata.queued = true`, true},
		{`metadata.queued == "True"`, true},
		{`metadata.priority = 3.0`, true},
		{`metadata.refresh_minion_cache.grains = true`, true},
		{`metadata.tags.Contains("lab")`, true},
		{`metadata.missing = "x"`, false},
		{`config.user.Contains('dm')`, true},
		{`jid = jid and id = id`, true},
	}
	for _, tc := range cases {
		f, err := ParseFilter(tc.expr)
		if err != nil {
			t.Fatalf("ParseFilter(%q) error: %v", tc.expr, err)
		}
		if got := f.Match(filterJob); got != tc.want {
			t.Errorf("ParseFilter(%q).Match = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestParseFilterRejects(t *testing.T) {
	cases := []string{
		`jid=Invalid_jid`,
		`config.fun.Contains("a"`,
		`config.fun = "test.ping"`,
		`config.fun.StartsWith("test")`,
		`config.fun.Matches("x")`,
		`nosuchfield = "x"`,
		`jid = "a" &`,
		`jid = "unterminated`,
		`(jid = "a"`,
		`jid`,
		`"a" && "b"`,
		`jid = "a" jid = "b"`,
		`config.fun.Contains(test.ping)`,
		`state = "a" ; drop`,
	}
	for _, expr := range cases {
		_, err := ParseFilter(expr)
		if err == nil {
			t.Errorf("ParseFilter(%q) succeeded, want error", expr)
			continue
		}
		if !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("ParseFilter(%q) error %v does not wrap ErrInvalidFilter", expr, err)
		}
	}
}

func TestParseOrderBy(t *testing.T) {
	less, err := ParseOrderBy("state descending, jid")
	if err != nil {
		t.Fatalf("ParseOrderBy error: %v", err)
	}
	a := &jobstore.Job{JID: "a", State: models.JobStateInQueue}
	b := &jobstore.Job{JID: "b", State: models.JobStateCanceled}
	c := &jobstore.Job{JID: "c", State: models.JobStateInQueue}
	if !less(a, b) {
		t.Error("INQUEUE should sort before CANCELED when descending")
	}
	if !less(a, c) || less(c, a) {
		t.Error("ties on state should fall back to jid ascending")
	}

	if less, err := ParseOrderBy("  "); err != nil || less != nil {
		t.Fatalf("empty orderBy should yield nil, got %v", err)
	}
	for _, bad := range []string{"bogus", "jid sideways", "jid asc extra"} {
		if _, err := ParseOrderBy(bad); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("ParseOrderBy(%q) = %v, want ErrInvalidFilter", bad, err)
		}
	}
}
