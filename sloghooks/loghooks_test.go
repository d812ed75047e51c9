package sloghooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/containers/store"
)

func newJSON(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("bad log line %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRedactsByDefault(t *testing.T) {
	var buf bytes.Buffer
	h := New(newJSON(&buf), Options{})
	h.ProviderSetRejected("rec:user:secret", false)

	got := lines(t, &buf)
	if len(got) != 1 {
		t.Fatalf("want 1 line, got %d", len(got))
	}
	if got[0]["msg"] != "store.provider_set_rejected" {
		t.Fatalf("msg %v", got[0]["msg"])
	}
	key, _ := got[0]["key"].(string)
	if len(key) != 16 || strings.Contains(key, "secret") {
		t.Fatalf("key not redacted: %q", key)
	}

	buf.Reset()
	h = New(newJSON(&buf), Options{Redact: Keep})
	h.GenBumpError("rec:user:1", errors.New("down"))
	if got := lines(t, &buf); got[0]["key"] != "rec:user:1" {
		t.Fatalf("Keep redactor changed key: %v", got[0]["key"])
	}
}

func TestSampling(t *testing.T) {
	var buf bytes.Buffer
	h := New(newJSON(&buf), Options{SelfHealEvery: 3, BatchRejectEvery: 1})
	for i := 0; i < 9; i++ {
		h.SelfHealRecord("rec:u:1", store.ReasonCorrupt)
	}
	h.BatchRejected("u", 4, store.ReasonBatchStale)
	h.BatchRejected("u", 4, store.ReasonBatchStale)

	var heals, rejects int
	for _, m := range lines(t, &buf) {
		switch m["msg"] {
		case "store.self_heal_record":
			heals++
		case "store.batch_rejected":
			rejects++
		}
	}
	if heals != 3 || rejects != 2 {
		t.Fatalf("heals=%d rejects=%d", heals, rejects)
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.InvalidateOutage("k", errors.New("a"), errors.New("b"))
	h.LocalGenWithBatch()
}
