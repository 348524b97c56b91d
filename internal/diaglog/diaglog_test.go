package diaglog

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfofWritesUnprefixedLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, false)
	l.Infof("hello %s", "world")
	if got := buf.String(); !strings.Contains(got, "hello world") {
		t.Fatalf("Infof output = %q, want it to contain %q", got, "hello world")
	}
}

func TestErrorfPrefixesWithError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, false)
	l.Errorf("boom")
	if got := buf.String(); !strings.Contains(got, "error: boom") {
		t.Fatalf("Errorf output = %q, want it to contain %q", got, "error: boom")
	}
}

func TestDebugfSuppressedWithoutDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, false)
	l.Debugf("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output with debug disabled, got %q", buf.String())
	}
}

func TestDebugfPrintsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, true)
	l.Debugf("visible")
	if got := buf.String(); !strings.Contains(got, "debug: visible") {
		t.Fatalf("Debugf output = %q, want it to contain %q", got, "debug: visible")
	}
}
