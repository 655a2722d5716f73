package subscriber

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a subscriber record.
type Status string

const (
	// StatusPendingValidation means the address was submitted but the
	// confirmation link has not been followed yet.
	StatusPendingValidation Status = "pending_validation"
	// StatusConfirmed means the subscriber followed the confirmation link.
	StatusConfirmed Status = "confirmed"
	// StatusUnsubscribed means the subscriber opted out. The record is kept;
	// a later subscribe restarts the cycle on the same record.
	StatusUnsubscribed Status = "unsubscribed"
)

// Subscriber is one email address's subscription record. There is at most one
// record per normalized email; the ID never changes after creation and records
// are never deleted.
type Subscriber struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Status          Status    `json:"status"`
	ValidationToken string    `json:"validation_token,omitempty"`
	TokenExpires    time.Time `json:"token_expires,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// New creates a pending subscriber record for an already-normalized email.
func New(email string) *Subscriber {
	now := time.Now().UTC()
	return &Subscriber{
		ID:        uuid.New().String(),
		Email:     email,
		Status:    StatusPendingValidation,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail lowercases, trims, and strips wrapping quotes/angle brackets
// from a raw address. All lookups and uniqueness checks use the normalized form.
func NormalizeEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	email = strings.Trim(email, "\"'<>")
	return email
}

var emailFormatRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidEmail checks whether a normalized email has a deliverable format.
func ValidEmail(email string) bool {
	if len(email) < 5 || len(email) > 254 {
		return false
	}
	return emailFormatRegex.MatchString(email)
}
