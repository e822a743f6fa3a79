package jobstore

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	job := &Job{JID: "j1", SystemID: "sys-1", State: "INQUEUE", Functions: []string{"test.ping"}}
	if err := s.Put(ctx, job); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "j1", "sys-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != "INQUEUE" || got.Functions[0] != "test.ping" {
		t.Fatalf("unexpected job: %+v", got)
	}

	// mutating the returned copy must not change the stored record
	got.State = "CANCELED"
	again, _ := s.Get(ctx, "j1", "sys-1")
	if again.State != "INQUEUE" {
		t.Fatalf("store leaked its record: %+v", again)
	}

	if _, err := s.Get(ctx, "j1", "sys-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStorePutReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()

	s.Put(ctx, &Job{JID: "j1", SystemID: "sys-1", State: "INQUEUE"})
	s.Put(ctx, &Job{JID: "j1", SystemID: "sys-1", State: "CANCELED"})

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 1 || jobs[0].State != "CANCELED" {
		t.Fatalf("expected one replaced record, got %+v", jobs)
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := t.Context()
	base := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	s.Put(ctx, &Job{JID: "old", SystemID: "b", CreatedTimestamp: base})
	s.Put(ctx, &Job{JID: "new", SystemID: "b", CreatedTimestamp: base.Add(time.Second)})
	s.Put(ctx, &Job{JID: "new", SystemID: "a", CreatedTimestamp: base.Add(time.Second)})

	jobs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, j := range jobs {
		got = append(got, j.Key())
	}
	want := []string{"new/a", "new/b", "old/b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestKeySeparatesSlashes(t *testing.T) {
	if Key("a/b", "c") == Key("a", "b/c") {
		t.Fatalf("keys collide: %q", Key("a/b", "c"))
	}

	s := NewMemoryStore()
	ctx := t.Context()
	s.Put(ctx, &Job{JID: "a/b", SystemID: "c", State: "INQUEUE"})
	if _, err := s.Get(ctx, "a", "b/c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a different pair, got %v", err)
	}
}

func TestDecodeJobKeepsLargeIntegers(t *testing.T) {
	j, err := decodeJob([]byte(`{"jid":"j1","id":"s","arg":[[9007199254740993]],"metadata":{"build":12345678901234567}}`))
	if err != nil {
		t.Fatalf("decodeJob: %v", err)
	}
	if got := j.Arguments[0][0]; got != json.Number("9007199254740993") {
		t.Fatalf("arg = %#v", got)
	}
	if got := j.Metadata["build"]; got != json.Number("12345678901234567") {
		t.Fatalf("metadata = %#v", got)
	}
}
