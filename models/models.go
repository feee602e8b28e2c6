package models

import (
	"encoding/json"
	"sync"
	"time"
)

// Category classifies a shared environment on the bulletin board.
type Category string

const (
	CategoryCompliance     Category = "compliance"
	CategoryCivil          Category = "civil"
	CategoryPenal          Category = "penal"
	CategoryAdministrative Category = "administrative"
	CategoryEU             Category = "eu"
	CategoryOther          Category = "other"
)

// VersionMode decides what happens to the previously current ledger entry
// when a new version is appended.
type VersionMode string

const (
	VersionReplace VersionMode = "replace" // previous entry is marked replaced
	VersionCoexist VersionMode = "coexist" // previous entries stay unmarked
)

// MergeMode decides how an approved suggestion is combined with the current content.
type MergeMode string

const (
	MergeUnion   MergeMode = "merge"
	MergeReplace MergeMode = "replace"
)

type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

type ReportReason string

const (
	ReasonSpam          ReportReason = "spam"
	ReasonInappropriate ReportReason = "inappropriate"
	ReasonCopyright     ReportReason = "copyright"
	ReasonOther         ReportReason = "other"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportDismissed ReportStatus = "dismissed"
)

// Profile represents a user account
type Profile struct {
	ID               string    `json:"id" gorm:"primaryKey;size:32"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash     string    `json:"password_hash"` // kept in JSON persistence, stripped by handlers
	IsAdmin          bool      `json:"is_admin"`
	CreationDate     time.Time `json:"creation_date"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

// Content is the snapshot carried by an environment, a ledger entry or a suggestion.
// Items are kept as raw JSON so the shape produced by the user's local store survives untouched.
type Content struct {
	Dossiers    []json.RawMessage `json:"dossiers"`
	QuickNorms  []json.RawMessage `json:"quickNorms"`
	Aliases     []json.RawMessage `json:"customAliases"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
	Highlights  []json.RawMessage `json:"highlights,omitempty"`
}

// SharedEnvironment is a published, versioned collection on the bulletin board.
type SharedEnvironment struct {
	ID                string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID           string    `json:"ownerId" gorm:"size:32;not null;index"`
	Title             string    `json:"title" gorm:"size:100;not null"`
	Description       string    `json:"description" gorm:"size:500"`
	Category          Category  `json:"category" gorm:"size:32;index"`
	Tags              []string  `json:"tags" gorm:"serializer:json"`
	Content           Content   `json:"content" gorm:"serializer:json"`
	CurrentVersion    int       `json:"currentVersion" gorm:"not null"`
	IncludeNotes      bool      `json:"includeNotes"`
	IncludeHighlights bool      `json:"includeHighlights"`
	LikeCount         int       `json:"likeCount"`
	DownloadCount     int       `json:"downloadCount"`
	ViewCount         int       `json:"viewCount"`
	IsActive          bool      `json:"isActive" gorm:"index"`
	CreationDate      time.Time `json:"createdAt"`
	LastModifiedDate  time.Time `json:"updatedAt"`
}

// Version is one immutable ledger entry. Only Replaced may change after creation.
type Version struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	EnvironmentID string    `json:"environmentId" gorm:"size:32;not null;uniqueIndex:idx_environment_version"`
	Number        int       `json:"version" gorm:"not null;uniqueIndex:idx_environment_version"`
	Content       Content   `json:"content" gorm:"serializer:json"`
	Changelog     string    `json:"changelog" gorm:"size:500"`
	AuthorID      string    `json:"authorId" gorm:"size:32"`
	Replaced      bool      `json:"replaced"`
	CreationDate  time.Time `json:"createdAt"`
}

// Suggestion is a non-owner's proposed content addition awaiting owner review.
type Suggestion struct {
	ID             string           `json:"id" gorm:"primaryKey;size:32"`
	EnvironmentID  string           `json:"environmentId" gorm:"size:32;not null;index"`
	SuggesterID    string           `json:"suggesterId" gorm:"size:32;not null;index"`
	Content        Content          `json:"content" gorm:"serializer:json"`
	Message        string           `json:"message" gorm:"size:1000"`
	Status         SuggestionStatus `json:"status" gorm:"size:16;index"`
	ReviewNote     string           `json:"reviewNote,omitempty" gorm:"size:500"`
	AppliedVersion int              `json:"appliedVersion,omitempty"`
	CreationDate   time.Time        `json:"createdAt"`
	ReviewedAt     *time.Time       `json:"reviewedAt,omitempty"`
}

// Report is a moderation flag raised against an environment.
type Report struct {
	ID               string       `json:"id" gorm:"primaryKey;size:32"`
	EnvironmentID    string       `json:"environmentId" gorm:"size:32;not null;index"`
	ReporterID       string       `json:"reporterId" gorm:"size:32;not null;index"`
	Reason           ReportReason `json:"reason" gorm:"size:32"`
	Details          string       `json:"details,omitempty" gorm:"size:500"`
	Status           ReportStatus `json:"status" gorm:"size:16;index"`
	CreationDate     time.Time    `json:"createdAt"`
	LastModifiedDate time.Time    `json:"updatedAt"`
}

// Like records that UserID currently likes EnvironmentID.
type Like struct {
	UserID        string    `json:"userId" gorm:"primaryKey;size:32"`
	EnvironmentID string    `json:"environmentId" gorm:"primaryKey;size:32;index"`
	CreationDate  time.Time `json:"createdAt"`
}

// LikeKey is the map key used for like memberships in the file store.
func LikeKey(userID, environmentID string) string {
	return userID + ":" + environmentID
}

// Database holds all application data and manages concurrent access
type Database struct {
	Profiles     map[string]Profile           `json:"profiles"`     // Keyed by Profile ID
	Environments map[string]SharedEnvironment `json:"environments"` // Keyed by environment ID
	Versions     map[string]Version           `json:"versions"`     // Keyed by version ID
	Suggestions  map[string]Suggestion        `json:"suggestions"`  // Keyed by suggestion ID
	Reports      map[string]Report            `json:"reports"`      // Keyed by report ID
	Likes        map[string]Like              `json:"likes"`        // Keyed by LikeKey

	Mu sync.RWMutex `json:"-"`
}
