package db

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"lexshare/config"
	"lexshare/models"

	"github.com/rs/zerolog/log"
)

// Database is the file-backed Store. All records live in memory, guarded by the
// embedded RWMutex, and are written to a JSON file after each committed Update
// (debounced by config.SaveInterval).
type Database struct {
	models.Database // Embedded struct from models
	config          *config.Config
	saveTimer       *time.Timer // Timer for debounced saving
	savePending     bool        // Flag to indicate if a save is queued
	saveMutex       sync.Mutex  // Mutex specifically for the save timer logic
}

var _ Store = (*Database)(nil)

// NewDatabase creates and initializes a new Database instance.
// It attempts to load existing data from the configured file.
func NewDatabase(cfg *config.Config) (*Database, error) {
	db := &Database{config: cfg}
	db.ensureMaps()

	log.Info().Str("path", cfg.DbFilePath).Msg("initializing file store")
	if err := db.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Msg("file store load failed with critical error")
			return nil, err
		}
	}
	return db, nil
}

// ensureMaps replaces nil maps with empty ones, e.g. after decoding a file with null tables.
func (db *Database) ensureMaps() {
	if db.Database.Profiles == nil {
		db.Database.Profiles = make(map[string]models.Profile)
	}
	if db.Database.Environments == nil {
		db.Database.Environments = make(map[string]models.SharedEnvironment)
	}
	if db.Database.Versions == nil {
		db.Database.Versions = make(map[string]models.Version)
	}
	if db.Database.Suggestions == nil {
		db.Database.Suggestions = make(map[string]models.Suggestion)
	}
	if db.Database.Reports == nil {
		db.Database.Reports = make(map[string]models.Report)
	}
	if db.Database.Likes == nil {
		db.Database.Likes = make(map[string]models.Like)
	}
}

// Load reads the database state from the JSON file specified in the configuration.
// A missing file yields an empty database; any other read or parse failure is returned.
func (db *Database) Load() error {
	db.Database.Mu.Lock()
	defer db.Database.Mu.Unlock()

	fileData, err := os.ReadFile(db.config.DbFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", db.config.DbFilePath).Msg("database file not found, starting empty")
			db.ensureMaps()
			return nil
		}
		log.Error().Err(err).Str("path", db.config.DbFilePath).Msg("failed to read database file")
		return err
	}

	if err := json.Unmarshal(fileData, &db.Database); err != nil {
		log.Error().Err(err).Str("path", db.config.DbFilePath).Msg("failed to parse database file")
		db.ensureMaps()
		return err
	}
	db.ensureMaps()

	log.Info().
		Str("path", db.config.DbFilePath).
		Int("profiles", len(db.Database.Profiles)).
		Int("environments", len(db.Database.Environments)).
		Int("versions", len(db.Database.Versions)).
		Int("suggestions", len(db.Database.Suggestions)).
		Msg("loaded database")
	return nil
}

// View runs fn against the live tables under a read lock. Writes fail with ErrReadOnly.
func (db *Database) View(ctx context.Context, fn func(Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.Database.Mu.RLock()
	defer db.Database.Mu.RUnlock()
	return fn(&memRepo{t: db.live(), readOnly: true})
}

// Update runs fn against a private copy of the tables under the write lock.
// The copy replaces the live tables only when fn succeeds.
func (db *Database) Update(ctx context.Context, fn func(Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := db.apply(fn); err != nil {
		return err
	}
	db.requestSave()
	return nil
}

// apply stages fn under the write lock. The lock is released even if fn panics.
func (db *Database) apply(fn func(Repository) error) error {
	db.Database.Mu.Lock()
	defer db.Database.Mu.Unlock()

	staged := db.live().clone()
	if err := fn(&memRepo{t: staged}); err != nil {
		return err
	}
	db.install(staged)
	return nil
}

func (db *Database) live() *tables {
	return &tables{
		profiles:     db.Database.Profiles,
		environments: db.Database.Environments,
		versions:     db.Database.Versions,
		suggestions:  db.Database.Suggestions,
		reports:      db.Database.Reports,
		likes:        db.Database.Likes,
	}
}

func (db *Database) install(t *tables) {
	db.Database.Profiles = t.profiles
	db.Database.Environments = t.environments
	db.Database.Versions = t.versions
	db.Database.Suggestions = t.suggestions
	db.Database.Reports = t.reports
	db.Database.Likes = t.likes
}

// persist saves the current database state to the JSON file.
func (db *Database) persist() error {
	db.Database.Mu.RLock()
	defer db.Database.Mu.RUnlock()

	log.Debug().Msg("persist triggered, marshalling database state")
	jsonData, err := json.MarshalIndent(&db.Database, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal database state")
		return err
	}

	// Atomic write: temp file, optional .bak, rename.
	tempFilePath := db.config.DbFilePath + ".tmp"
	backupFilePath := db.config.DbFilePath + ".bak"

	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		log.Error().Err(err).Str("path", tempFilePath).Msg("failed to write temporary database file")
		return err
	}

	if db.config.EnableBackup {
		if _, err := os.Stat(db.config.DbFilePath); err == nil {
			if err := os.Rename(db.config.DbFilePath, backupFilePath); err != nil {
				log.Warn().Err(err).Str("backup", backupFilePath).Msg("failed to create backup, proceeding with save")
			} else {
				log.Debug().Str("backup", backupFilePath).Msg("created backup file")
			}
		} else if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", db.config.DbFilePath).Msg("error checking database file before backup")
		}
	}

	if err := os.Rename(tempFilePath, db.config.DbFilePath); err != nil {
		log.Error().Err(err).Str("path", db.config.DbFilePath).Msg("failed to rename temporary database file")
		_ = os.Remove(tempFilePath)
		return err
	}

	log.Debug().Str("path", db.config.DbFilePath).Msg("saved database state")
	return nil
}

// requestSave is called after every committed Update to trigger a debounced save.
func (db *Database) requestSave() {
	db.saveMutex.Lock()
	defer db.saveMutex.Unlock()

	if db.config.SaveInterval <= 0 {
		go func() {
			if err := db.persist(); err != nil {
				log.Error().Err(err).Msg("immediate persist failed")
			}
		}()
		return
	}

	if db.saveTimer != nil {
		db.saveTimer.Stop()
	}
	db.savePending = true

	db.saveTimer = time.AfterFunc(db.config.SaveInterval, func() {
		db.saveMutex.Lock()
		if !db.savePending {
			db.saveMutex.Unlock()
			return
		}
		db.savePending = false
		db.saveMutex.Unlock()

		if err := db.persist(); err != nil {
			log.Error().Err(err).Msg("debounced persist failed")
		}
	})
}

// Close ensures any pending save operation is completed before shutdown.
func (db *Database) Close() error {
	var needsFinalPersist bool

	db.saveMutex.Lock()
	if db.saveTimer != nil {
		db.saveTimer.Stop()
		db.saveTimer = nil
	}
	if db.savePending {
		needsFinalPersist = true
		db.savePending = false
	}
	db.saveMutex.Unlock()

	if needsFinalPersist {
		log.Info().Msg("performing final persist on close")
		if err := db.persist(); err != nil {
			log.Error().Err(err).Msg("final persist failed during close")
			return err
		}
	}
	return nil
}
