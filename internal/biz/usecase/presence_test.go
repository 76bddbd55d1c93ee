package usecase

import (
	"testing"

	"github.com/irctelegram/ircbridge/internal/biz/domain"
)

func TestPresence_JoinOnce(t *testing.T) {
	uc := NewPresenceUsecase(domain.NewPresenceTable(), "irctelegram.bridge")
	id := domain.NewIdentity(domain.ChatUser{ID: "42", Username: "bob"})

	line, ok := uc.See(id, "#100", false)
	if !ok {
		t.Fatal("expected JOIN on first sight")
	}
	if line != ":bob!42@bob.irctelegram.bridge JOIN #100" {
		t.Errorf("unexpected JOIN %q", line)
	}
	if _, ok := uc.See(id, "#100", false); ok {
		t.Error("expected no second JOIN")
	}
}

func TestPresence_ExtendedJoin(t *testing.T) {
	uc := NewPresenceUsecase(domain.NewPresenceTable(), "s")

	withName := domain.NewIdentity(domain.ChatUser{ID: "1", Username: "ann", FirstName: "Ann", LastName: "Lee"})
	line, _ := uc.See(withName, "#1", true)
	if line != ":ann!1@ann.s JOIN #1 ann :Ann Lee" {
		t.Errorf("unexpected extended JOIN %q", line)
	}

	anon := domain.NewIdentity(domain.ChatUser{ID: "2"})
	line, _ = uc.See(anon, "#1", true)
	if line != ":_!2@2.s JOIN #1 * :" {
		t.Errorf("unexpected extended JOIN %q", line)
	}
}
