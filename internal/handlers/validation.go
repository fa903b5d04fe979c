package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/dcxrhonxai/Emergency-Response-PH-sub000/internal/database"
)

const (
	maxEmergencyTypeLen = 100
	maxSituationLen     = 2000
	maxContactNameLen   = 200
	maxContacts         = 20
	maxEvidenceRefs     = 10
)

var (
	// phonePattern is deliberately permissive; the SMS gateway is the final
	// arbiter of deliverability.
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,19}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ContactInput is a contact as supplied in a request body.
type ContactInput struct {
	ContactID    string `json:"contact_id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
}

// validateAlertContent checks the alert fields shared by create requests.
// Returns true if valid, false otherwise (and writes error response).
func validateAlertContent(w http.ResponseWriter, emergencyType, situation string, latitude, longitude float64) bool {
	if emergencyType == "" {
		http.Error(w, "emergency_type is required", http.StatusBadRequest)
		return false
	}
	if len(emergencyType) > maxEmergencyTypeLen {
		http.Error(w, fmt.Sprintf("emergency_type must be at most %d characters", maxEmergencyTypeLen), http.StatusBadRequest)
		return false
	}
	if len(situation) > maxSituationLen {
		http.Error(w, fmt.Sprintf("situation must be at most %d characters", maxSituationLen), http.StatusBadRequest)
		return false
	}
	if latitude < -90 || latitude > 90 {
		http.Error(w, "latitude must be between -90 and 90", http.StatusBadRequest)
		return false
	}
	if longitude < -180 || longitude > 180 {
		http.Error(w, "longitude must be between -180 and 180", http.StatusBadRequest)
		return false
	}
	return true
}

// validateWave checks the wave label.
func validateWave(w http.ResponseWriter, wave string) bool {
	if wave != "initial" && wave != "escalated" {
		http.Error(w, `wave must be "initial" or "escalated"`, http.StatusBadRequest)
		return false
	}
	return true
}

// validateEvidenceRefs checks that evidence references are http(s) URLs.
func validateEvidenceRefs(w http.ResponseWriter, refs []string) bool {
	if len(refs) > maxEvidenceRefs {
		http.Error(w, fmt.Sprintf("at most %d evidence_refs allowed", maxEvidenceRefs), http.StatusBadRequest)
		return false
	}
	for _, ref := range refs {
		u, err := url.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			http.Error(w, "evidence_refs must be http(s) URLs", http.StatusBadRequest)
			return false
		}
	}
	return true
}

// validateContacts checks the request contact list and converts it to
// database contacts owned by the subject. A contact without an explicit ID
// gets one derived from its phone number.
func validateContacts(w http.ResponseWriter, ownerID string, inputs []ContactInput) ([]*database.Contact, bool) {
	if len(inputs) == 0 {
		http.Error(w, "at least one contact is required", http.StatusBadRequest)
		return nil, false
	}
	if len(inputs) > maxContacts {
		http.Error(w, fmt.Sprintf("at most %d contacts allowed", maxContacts), http.StatusBadRequest)
		return nil, false
	}

	contacts := make([]*database.Contact, 0, len(inputs))
	for i, in := range inputs {
		if in.Name == "" {
			http.Error(w, fmt.Sprintf("contact %d: name is required", i), http.StatusBadRequest)
			return nil, false
		}
		if len(in.Name) > maxContactNameLen {
			http.Error(w, fmt.Sprintf("contact %d: name must be at most %d characters", i, maxContactNameLen), http.StatusBadRequest)
			return nil, false
		}
		if in.Phone == "" && in.Email == "" {
			http.Error(w, fmt.Sprintf("contact %d: phone or email is required", i), http.StatusBadRequest)
			return nil, false
		}
		if in.Phone != "" && !phonePattern.MatchString(in.Phone) {
			http.Error(w, fmt.Sprintf("contact %d: invalid phone number", i), http.StatusBadRequest)
			return nil, false
		}
		if in.Email != "" && !emailPattern.MatchString(in.Email) {
			http.Error(w, fmt.Sprintf("contact %d: invalid email address", i), http.StatusBadRequest)
			return nil, false
		}

		contactID := in.ContactID
		if contactID == "" {
			// Stable ID so repeated dispatches for the same contact dedup
			// against the ledger.
			if in.Phone != "" {
				contactID = "phone:" + strings.Map(digitOnly, in.Phone)
			} else {
				contactID = "email:" + strings.ToLower(in.Email)
			}
		}

		contacts = append(contacts, &database.Contact{
			ContactID:    contactID,
			OwnerID:      ownerID,
			Name:         in.Name,
			Phone:        in.Phone,
			Email:        in.Email,
			Relationship: in.Relationship,
		})
	}
	return contacts, true
}

func digitOnly(r rune) rune {
	if r >= '0' && r <= '9' || r == '+' {
		return r
	}
	return -1
}
