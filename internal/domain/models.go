// Package domain defines the persistence models for users, locations, queue
// entries, and contact submissions. These types are mapped with GORM and form
// the core data layer of the queue-management application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Queue entry lifecycle states. Transitions are enforced by the queue
// service; the database only constrains the value set.
const (
	StatusWaiting   = "waiting"
	StatusNotified  = "notified"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Contact submission triage buckets assigned from the bot score.
const (
	SubmissionNew     = "new"
	SubmissionReview  = "review"
	SubmissionFlagged = "flagged"
)

// User represents an account that can own locations and sign in to the
// admin surface. Passwords are stored as bcrypt hashes only.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Username / Email: unique login identifiers.
//   - HashedPassword: bcrypt hash; never serialized to JSON.
//   - IsActive: soft-disable switch for the account.
//   - IsAdmin: grants access to every location and the admin endpoints.
type User struct {
	ID             string         `json:"id"       gorm:"type:char(36);primaryKey"`
	Username       string         `json:"username" gorm:"type:varchar(50);not null;uniqueIndex"`
	Email          string         `json:"email"    gorm:"type:varchar(100);not null;uniqueIndex"`
	HashedPassword string         `json:"-"        gorm:"type:varchar(255);not null"`
	IsActive       bool           `json:"is_active" gorm:"not null;default:true"`
	IsAdmin        bool           `json:"is_admin"  gorm:"not null;default:false"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Location is a physical site that operates one virtual queue. A location is
// exclusively owned by one user; admins may manage any location.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Name: display name shown to queued customers.
//   - Address / Phone: optional contact details.
//   - QRCodeURL: join link encoded into the printed QR code.
//   - OwnerID: foreign key to the owning user (indexed).
//   - IsActive: soft-disable switch; inactive locations reject joins.
type Location struct {
	ID        string         `json:"id"          gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"        gorm:"type:varchar(100);not null"`
	Address   string         `json:"address,omitempty" gorm:"type:text"`
	Phone     string         `json:"phone,omitempty"   gorm:"type:varchar(20)"`
	QRCodeURL string         `json:"qr_code_url,omitempty" gorm:"type:varchar(255)"`
	OwnerID   string         `json:"owner_id"    gorm:"type:char(36);not null;index:idx_owner_locations"`
	IsActive  bool           `json:"is_active"   gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"           gorm:"index"`

	// Owner is the account controlling this location.
	Owner User `json:"-" gorm:"foreignKey:OwnerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Location.
func (Location) TableName() string { return "locations" }

// QueueEntry is one customer's place in a location's queue. Entries are never
// deleted; terminal states (completed, cancelled) are retained as history.
//
// Fields:
//   - ID: UUID primary key (char(36)); doubles as the public tracking token.
//   - CustomerName / CustomerPhone: customer identity; phone deduplicates
//     joins at the same location.
//   - LocationID: foreign key to the owning location (indexed).
//   - Position: 1-based place in line among waiting/notified entries.
//   - Status: waiting | notified | completed | cancelled.
//   - EstimatedWaitTime: minutes, recomputed when positions shift.
//   - NotifiedAt / CompletedAt: transition timestamps, set once.
type QueueEntry struct {
	ID                string         `json:"id"             gorm:"type:char(36);primaryKey"`
	CustomerName      string         `json:"customer_name"  gorm:"type:varchar(100);not null"`
	CustomerPhone     string         `json:"customer_phone" gorm:"type:varchar(20);not null;index"`
	LocationID        string         `json:"location_id"    gorm:"type:char(36);not null;index:idx_location_entries,priority:1"`
	Position          int            `json:"position"       gorm:"not null"`
	Status            string         `json:"status"         gorm:"type:varchar(16);not null;default:'waiting';check:status IN ('waiting','notified','completed','cancelled');index:idx_location_entries,priority:2"`
	EstimatedWaitTime int            `json:"estimated_wait_time" gorm:"not null"` // minutes
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	NotifiedAt        *time.Time     `json:"notified_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`

	// Location is the parent site. Entries are cascade-deleted if their
	// location is removed.
	Location Location `json:"-" gorm:"foreignKey:LocationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for QueueEntry.
func (QueueEntry) TableName() string { return "queue_entries" }

// Active reports whether the entry still holds a place in line.
func (e *QueueEntry) Active() bool {
	return e.Status == StatusWaiting || e.Status == StatusNotified
}

// ContactSubmission is a durable record of one accepted contact-form message.
// Honeypot-triggered submissions are never persisted, so every row here
// arrived with an empty honeypot field.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Name / Email / Phone / Message: visitor-supplied form fields.
//   - IPAddress / UserAgent: captured for abuse triage only.
//   - IsRead / IsFlagged: admin triage switches.
//   - Status: new | review | flagged, routed from the bot score.
//   - BotScore: 0..100 heuristic likelihood of automated abuse.
type ContactSubmission struct {
	ID             string         `json:"id"      gorm:"type:char(36);primaryKey"`
	Name           string         `json:"name"    gorm:"type:varchar(255);not null"`
	Email          string         `json:"email"   gorm:"type:varchar(255);not null;index"`
	Phone          string         `json:"phone,omitempty" gorm:"type:varchar(50)"`
	Message        string         `json:"message" gorm:"type:text;not null"`
	IPAddress      string         `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent      string         `json:"user_agent" gorm:"type:varchar(512)"`
	SubmissionTime time.Time      `json:"submission_time" gorm:"index"`
	IsRead         bool           `json:"is_read"    gorm:"not null;default:false"`
	IsFlagged      bool           `json:"is_flagged" gorm:"not null;default:false"`
	Status         string         `json:"status"     gorm:"type:varchar(16);not null;default:'new';check:status IN ('new','review','flagged');index"`
	BotScore       int            `json:"bot_score"  gorm:"not null;check:bot_score BETWEEN 0 AND 100"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for ContactSubmission.
func (ContactSubmission) TableName() string { return "contact_submissions" }
