package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_JSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "streamlit-deploy", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("hello", "app", "demo1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not a single JSON record: %q", buf.String())
	}
	if rec["service"] != "streamlit-deploy" || rec["msg"] != "hello" || rec["app"] != "demo1" {
		t.Fatalf("record=%v", rec)
	}
}
