package pgraph

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogWriters(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag})
	defer SetLogWriters(LogWriters{})

	Opsf("run %d", 1)
	Diagf("outer %d", 2)
	Tracef("dropped")

	if !strings.Contains(ops.String(), "[pgraph] run 1") {
		t.Errorf("ops stream = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "[pgraph diag] outer 2") {
		t.Errorf("diag stream = %q", diag.String())
	}
	if strings.Contains(ops.String()+diag.String(), "dropped") {
		t.Error("trace line leaked into another stream")
	}

	SetLogWriters(LogWriters{})
	Opsf("silent")
	if strings.Contains(ops.String(), "silent") {
		t.Error("ops stream still writing after being disabled")
	}
}
