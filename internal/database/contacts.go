package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Contact represents an emergency contact record. Contacts are owned by the
// alert owner and are read-only from this service's perspective; the contact
// book is maintained elsewhere.
type Contact struct {
	ContactID    string
	OwnerID      string
	Name         string
	Phone        string
	Email        string
	Relationship string
	CreatedAt    time.Time
}

// ListContactsByOwner retrieves all emergency contacts for an owner, oldest
// first. An empty result is valid: an owner without contacts simply has
// nobody to notify.
func (db *DB) ListContactsByOwner(ctx context.Context, ownerID string) ([]*Contact, error) {
	query := `
		SELECT contact_id, owner_id, name, phone, email, relationship, created_at
		FROM contacts
		WHERE owner_id = $1
		ORDER BY created_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		var contact Contact
		var email, relationship sql.NullString
		if err := rows.Scan(
			&contact.ContactID,
			&contact.OwnerID,
			&contact.Name,
			&contact.Phone,
			&email,
			&relationship,
			&contact.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contact.Email = email.String
		contact.Relationship = relationship.String
		contacts = append(contacts, &contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}
