package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, nil),
	})
	return l, &buf
}

func TestComponentAttached(t *testing.T) {
	l, buf := newBufferLogger(ComponentLedger)

	l.Info("recorded", FieldTxID, 7)

	out := buf.String()
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("missing component attribute: %s", out)
	}
	if !strings.Contains(out, "transaction_id=7") {
		t.Errorf("missing field: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	l, buf := newBufferLogger(ComponentApp)

	w := l.WithComponent(ComponentWorker)
	if w.Component() != ComponentWorker {
		t.Errorf("Component() = %q", w.Component())
	}
	w.Warn("slow")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("missing worker component: %s", buf.String())
	}

	// The original logger keeps its own component.
	if l.Component() != ComponentApp {
		t.Errorf("original logger component changed: %q", l.Component())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Component != ComponentApp {
		t.Errorf("Component = %q", cfg.Component)
	}
	if cfg.Level != slog.LevelInfo {
		t.Errorf("Level = %v", cfg.Level)
	}
}
