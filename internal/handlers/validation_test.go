package handlers

import (
	"net/http/httptest"
	"testing"
)

func TestValidateContacts_DerivesStableIDs(t *testing.T) {
	w := httptest.NewRecorder()
	contacts, ok := validateContacts(w, "user-1", []ContactInput{
		{Name: "Ana", Phone: "+63 917 123-4567"},
		{Name: "Ben", Email: "Ben@Example.com"},
		{ContactID: "c-explicit", Name: "Cai", Phone: "+639170000000"},
	})
	if !ok {
		t.Fatalf("expected valid contacts: %s", w.Body.String())
	}

	if contacts[0].ContactID != "phone:+639171234567" {
		t.Errorf("phone-derived ID should strip formatting, got %q", contacts[0].ContactID)
	}
	if contacts[1].ContactID != "email:ben@example.com" {
		t.Errorf("email-derived ID should lowercase, got %q", contacts[1].ContactID)
	}
	if contacts[2].ContactID != "c-explicit" {
		t.Errorf("explicit ID must be kept, got %q", contacts[2].ContactID)
	}
	for _, c := range contacts {
		if c.OwnerID != "user-1" {
			t.Errorf("contact %s: owner not set", c.ContactID)
		}
	}
}

func TestValidateContacts_SameContactSameID(t *testing.T) {
	w := httptest.NewRecorder()
	first, ok := validateContacts(w, "user-1", []ContactInput{{Name: "Ana", Phone: "+639171234567"}})
	if !ok {
		t.Fatal("expected valid contact")
	}
	second, ok := validateContacts(w, "user-1", []ContactInput{{Name: "Ana", Phone: "+63 9171 234 567"}})
	if !ok {
		t.Fatal("expected valid contact")
	}
	// Formatting differences must not defeat ledger dedup.
	if first[0].ContactID != second[0].ContactID {
		t.Errorf("expected identical IDs, got %q and %q", first[0].ContactID, second[0].ContactID)
	}
}

func TestValidateWave(t *testing.T) {
	for _, wave := range []string{"initial", "escalated"} {
		w := httptest.NewRecorder()
		if !validateWave(w, wave) {
			t.Errorf("wave %q should be valid", wave)
		}
	}
	for _, wave := range []string{"", "INITIAL", "third"} {
		w := httptest.NewRecorder()
		if validateWave(w, wave) {
			t.Errorf("wave %q should be rejected", wave)
		}
	}
}
