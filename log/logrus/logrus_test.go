package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/containers/store"
)

func TestLoggerFieldsAndLevels(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base, "store")

	boom := errors.New("boom")
	l.Warn("gen snapshot error", store.Fields{"key": "rec:user:1", "err": boom})

	e := hook.LastEntry()
	if e == nil {
		t.Fatalf("no entry logged")
	}
	if e.Level != logrus.WarnLevel || e.Message != "gen snapshot error" {
		t.Fatalf("got level=%s msg=%q", e.Level, e.Message)
	}
	if e.Data["component"] != "store" || e.Data["key"] != "rec:user:1" {
		t.Fatalf("missing fields: %v", e.Data)
	}
	if e.Data[logrus.ErrorKey] != boom {
		t.Fatalf("error not attached under %q: %v", logrus.ErrorKey, e.Data)
	}

	l.Debug("no fields", nil)
	if got := hook.LastEntry(); got.Level != logrus.DebugLevel || len(got.Data) != 1 {
		t.Fatalf("debug entry: level=%s data=%v", got.Level, got.Data)
	}
	if len(hook.AllEntries()) != 2 {
		t.Fatalf("want 2 entries, got %d", len(hook.AllEntries()))
	}
}
