package domain

import (
	"testing"
	"time"
)

func TestPresenceTable_MarkOnce(t *testing.T) {
	p := NewPresenceTable()
	if !p.Mark("#100", "Bob") {
		t.Fatal("expected first sighting to be new")
	}
	if p.Mark("#100", "bob") {
		t.Error("expected case-folded nick to be known")
	}
	if p.Mark("#100", "BOB") {
		t.Error("expected case-folded nick to be known")
	}
	if !p.Mark("#200", "bob") {
		t.Error("expected a different target to track separately")
	}
	if p.Members("#100") != 1 {
		t.Errorf("expected 1 member, got %d", p.Members("#100"))
	}
}

func TestSession_ParseMode(t *testing.T) {
	s := NewSession("IRC", 0)
	if s.ParseModeName() != "IRC" {
		t.Errorf("expected IRC, got %q", s.ParseModeName())
	}
	s.SetParseMode("plain")
	if s.ParseMode != "" || s.ParseModeName() != "Plain" {
		t.Errorf("expected markup disabled, got %q", s.ParseMode)
	}
}

func TestBatchState_AppendTake(t *testing.T) {
	var b BatchState
	b.Active, b.TargetChatID = true, "1"
	b.Append("a")
	b.Append("b")
	if !b.HasPending() {
		t.Fatal("expected pending text")
	}
	chatID, text := b.Take()
	if chatID != "1" || text != "a\nb" {
		t.Errorf("unexpected take %q %q", chatID, text)
	}
	if b.HasPending() {
		t.Error("expected text cleared after take")
	}
}

func TestParseDelay(t *testing.T) {
	if d, ok := ParseDelay("0.25"); !ok || d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v %v", d, ok)
	}
	if d, ok := ParseDelay("0"); !ok || d != 0 {
		t.Errorf("expected zero delay, got %v %v", d, ok)
	}
	for _, val := range []string{"", "x", "-0.1", "NaN", "Inf", "+Inf", "-Inf", "1e300", "9.3e9"} {
		if d, ok := ParseDelay(val); ok {
			t.Errorf("expected %q to be rejected, got %v", val, d)
		}
	}
}
