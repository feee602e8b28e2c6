package db

import (
	"context"
	"errors"

	"lexshare/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrReadOnly is returned by write methods called inside View.
	ErrReadOnly = errors.New("write attempted in read-only view")
)

// SuggestionFilter narrows ListSuggestions. Zero fields do not filter.
type SuggestionFilter struct {
	EnvironmentIDs []string // match any of these environments; nil means all
	SuggesterID    string
	Status         models.SuggestionStatus
}

// ReportFilter narrows ListReports. Zero fields do not filter.
type ReportFilter struct {
	EnvironmentID string
	ReporterID    string
	Status        models.ReportStatus
}

// Repository is the set of record operations available inside a View or Update.
// Implementations return ErrNotFound for unknown ids.
type Repository interface {
	CreateProfile(p models.Profile) error
	GetProfileByID(id string) (models.Profile, error)
	GetProfileByEmail(email string) (models.Profile, error)

	GetEnvironment(id string) (models.SharedEnvironment, error)
	ListEnvironments() ([]models.SharedEnvironment, error)
	ListEnvironmentsByOwner(ownerID string) ([]models.SharedEnvironment, error)
	SaveEnvironment(env models.SharedEnvironment) error
	// DeleteEnvironment removes the environment with its versions, suggestions, reports and likes.
	DeleteEnvironment(id string) error

	CreateVersion(v models.Version) error
	GetVersion(id string) (models.Version, error)
	// ListVersions returns the environment's ledger ordered by version number, oldest first.
	ListVersions(environmentID string) ([]models.Version, error)
	MarkVersionReplaced(id string) error

	SaveSuggestion(s models.Suggestion) error
	GetSuggestion(id string) (models.Suggestion, error)
	// ListSuggestions returns matches ordered newest first.
	ListSuggestions(f SuggestionFilter) ([]models.Suggestion, error)

	SaveReport(r models.Report) error
	GetReport(id string) (models.Report, error)
	// ListReports returns matches ordered newest first.
	ListReports(f ReportFilter) ([]models.Report, error)

	HasLike(userID, environmentID string) (bool, error)
	AddLike(l models.Like) error
	RemoveLike(userID, environmentID string) error
	LikedEnvironmentIDs(userID string) (map[string]bool, error)
}

// Store runs functions against a Repository.
// Update commits every write made by fn atomically, or none of them when fn returns an error.
type Store interface {
	View(ctx context.Context, fn func(Repository) error) error
	Update(ctx context.Context, fn func(Repository) error) error
	Close() error
}
