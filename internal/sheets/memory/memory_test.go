package memory

import (
	"context"
	"errors"
	"testing"

	"finanzas/internal/core"
)

func TestMirrorAppendAndIndex(t *testing.T) {
	m := New()
	ctx := context.Background()
	tx := core.Transaction{ID: "tx-1"}

	ok, _ := m.Mirrored(ctx, tx)
	if ok {
		t.Fatal("empty mirror reports a row")
	}
	ref, err := m.Append(ctx, tx)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q", ref)
	}
	ok, _ = m.Mirrored(ctx, tx)
	if !ok {
		t.Error("appended row not indexed")
	}
	if len(m.Rows()) != 1 {
		t.Errorf("rows = %d", len(m.Rows()))
	}
}

func TestMirrorFailures(t *testing.T) {
	m := New()
	if _, err := m.Append(context.Background(), core.Transaction{}); err == nil {
		t.Error("expected error for missing id")
	}
	boom := errors.New("boom")
	m.Fail = boom
	if _, err := m.Append(context.Background(), core.Transaction{ID: "x"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if len(m.Rows()) != 0 {
		t.Error("failed append stored a row")
	}
}
