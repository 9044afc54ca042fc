package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SubjectType string

const (
	SubjectAccount SubjectType = "account"
	SubjectChannel SubjectType = "channel"
)

// Subject identifies what a ban applies to: an account or a channel.
type Subject struct {
	Type SubjectType `json:"type"`
	ID   uuid.UUID   `json:"id"`
}

func AccountSubject(id uuid.UUID) Subject {
	return Subject{Type: SubjectAccount, ID: id}
}

func ChannelSubject(id uuid.UUID) Subject {
	return Subject{Type: SubjectChannel, ID: id}
}

func (s Subject) Validate() error {
	if s.Type != SubjectAccount && s.Type != SubjectChannel {
		return fmt.Errorf("unknown subject type %q", s.Type)
	}
	if s.ID == uuid.Nil {
		return fmt.Errorf("subject id is required")
	}
	return nil
}

func (s Subject) String() string {
	return fmt.Sprintf("%s:%s", s.Type, s.ID)
}

type BanStatus string

const (
	BanActive  BanStatus = "active"
	BanLifted  BanStatus = "lifted"
	BanExpired BanStatus = "expired"
)

// BanRecord is a single suspension of a subject. Lifted and expired records
// are terminal; banning again creates a fresh record so history is retained.
type BanRecord struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Subject   Subject    `json:"subject"`
	Reason    string     `json:"reason" db:"reason"`
	CreatedBy uuid.UUID  `json:"created_by" db:"created_by"`
	StartAt   time.Time  `json:"start_at" db:"start_at"`
	EndAt     *time.Time `json:"end_at,omitempty" db:"end_at"` // nil = permanent
	Status    BanStatus  `json:"status" db:"status"`
}

// Validate checks record-level invariants before persisting.
func (b *BanRecord) Validate() error {
	if err := b.Subject.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Reason) == "" {
		return fmt.Errorf("reason is required")
	}
	if b.CreatedBy == uuid.Nil {
		return fmt.Errorf("created_by is required")
	}
	if b.EndAt != nil && !b.EndAt.After(b.StartAt) {
		return fmt.Errorf("end_at must be after start_at")
	}
	switch b.Status {
	case BanActive, BanLifted, BanExpired:
	default:
		return fmt.Errorf("unknown ban status %q", b.Status)
	}
	return nil
}

// Expired reports whether an active record has run past its end. Permanent
// bans (nil EndAt) never expire.
func (b *BanRecord) Expired(now time.Time) bool {
	if b.Status != BanActive || b.EndAt == nil {
		return false
	}
	return !b.EndAt.After(now)
}

type AuditAction string

const (
	AuditBan    AuditAction = "ban"
	AuditLift   AuditAction = "lift"
	AuditExpire AuditAction = "expire"
)

// BanAuditEvent is one append-only entry in a record's history. ActorID is
// nil only for system-originated expirations.
type BanAuditEvent struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	BanID      uuid.UUID   `json:"ban_id" db:"ban_id"`
	Action     AuditAction `json:"action" db:"action"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty" db:"actor_id"`
	OccurredAt time.Time   `json:"occurred_at" db:"occurred_at"`
}

// AuditEntry is the presentation shape for audit listings: the event plus
// the context a reviewer needs without another lookup.
type AuditEntry struct {
	Action           AuditAction `json:"action"`
	ActorDisplayName string      `json:"actor_display_name"` // "system" for expirations
	OccurredAt       time.Time   `json:"occurred_at"`
	Reason           string      `json:"reason"`
	BanStart         time.Time   `json:"ban_start"`
	BanEnd           *time.Time  `json:"ban_end,omitempty"`
}
