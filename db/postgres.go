package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexshare/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostgresConfig holds the connection settings for PostgresStore.
type PostgresConfig struct {
	DSN             string
	LogLevel        string // silent, error, warn, info
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// PostgresStore is a Store backed by PostgreSQL through gorm.
// Update runs inside a database transaction and reads environments FOR UPDATE,
// so concurrent operations on one environment are serialised by the row lock.
type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore opens the connection, configures the pool and migrates the schema.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	setPostgresDefaults(&cfg)

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         gormLogger(cfg.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get postgres pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &PostgresStore{db: gdb}
	if err := store.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info().Msg("connected to postgres store")
	return store, nil
}

// Migrate creates or updates every table the store uses.
func (s *PostgresStore) Migrate() error {
	err := s.db.AutoMigrate(
		&models.Profile{},
		&models.SharedEnvironment{},
		&models.Version{},
		&models.Suggestion{},
		&models.Report{},
		&models.Like{},
	)
	if err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) View(ctx context.Context, fn func(Repository) error) error {
	return fn(&pgRepo{tx: s.db.WithContext(ctx), readOnly: true})
}

func (s *PostgresStore) Update(ctx context.Context, fn func(Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgRepo{tx: tx, lock: true})
	})
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func setPostgresDefaults(c *PostgresConfig) {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
}

func gormLogger(level string) logger.Interface {
	switch level {
	case "silent":
		return logger.Default.LogMode(logger.Silent)
	case "error":
		return logger.Default.LogMode(logger.Error)
	case "info":
		return logger.Default.LogMode(logger.Info)
	default:
		return logger.Default.LogMode(logger.Warn)
	}
}

// pgRepo implements Repository on a gorm handle (a transaction inside Update).
type pgRepo struct {
	tx       *gorm.DB
	readOnly bool
	lock     bool
}

var _ Repository = (*pgRepo)(nil)

func (r *pgRepo) writable() error {
	if r.readOnly {
		return ErrReadOnly
	}
	return nil
}

// translate maps gorm errors onto the package's sentinel errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (r *pgRepo) CreateProfile(p models.Profile) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, err := r.GetProfileByEmail(p.Email); err == nil {
		return ErrDuplicate
	}
	return translate(r.tx.Create(&p).Error)
}

func (r *pgRepo) GetProfileByID(id string) (models.Profile, error) {
	var p models.Profile
	err := r.tx.Where("id = ?", id).First(&p).Error
	return p, translate(err)
}

func (r *pgRepo) GetProfileByEmail(email string) (models.Profile, error) {
	var p models.Profile
	err := r.tx.Where("LOWER(email) = LOWER(?)", email).First(&p).Error
	return p, translate(err)
}

func (r *pgRepo) GetEnvironment(id string) (models.SharedEnvironment, error) {
	var env models.SharedEnvironment
	q := r.tx
	if r.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("id = ?", id).First(&env).Error
	return env, translate(err)
}

func (r *pgRepo) ListEnvironments() ([]models.SharedEnvironment, error) {
	var envs []models.SharedEnvironment
	err := r.tx.Order("creation_date DESC, id DESC").Find(&envs).Error
	return envs, translate(err)
}

func (r *pgRepo) ListEnvironmentsByOwner(ownerID string) ([]models.SharedEnvironment, error) {
	var envs []models.SharedEnvironment
	err := r.tx.Where("owner_id = ?", ownerID).Order("creation_date DESC, id DESC").Find(&envs).Error
	return envs, translate(err)
}

func (r *pgRepo) SaveEnvironment(env models.SharedEnvironment) error {
	if err := r.writable(); err != nil {
		return err
	}
	return translate(r.tx.Save(&env).Error)
}

func (r *pgRepo) DeleteEnvironment(id string) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, model := range []any{&models.Version{}, &models.Suggestion{}, &models.Report{}, &models.Like{}} {
		if err := r.tx.Where("environment_id = ?", id).Delete(model).Error; err != nil {
			return translate(err)
		}
	}
	res := r.tx.Where("id = ?", id).Delete(&models.SharedEnvironment{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) CreateVersion(v models.Version) error {
	if err := r.writable(); err != nil {
		return err
	}
	return translate(r.tx.Create(&v).Error)
}

func (r *pgRepo) GetVersion(id string) (models.Version, error) {
	var v models.Version
	err := r.tx.Where("id = ?", id).First(&v).Error
	return v, translate(err)
}

func (r *pgRepo) ListVersions(environmentID string) ([]models.Version, error) {
	var versions []models.Version
	err := r.tx.Where("environment_id = ?", environmentID).Order("number ASC").Find(&versions).Error
	return versions, translate(err)
}

func (r *pgRepo) MarkVersionReplaced(id string) error {
	if err := r.writable(); err != nil {
		return err
	}
	res := r.tx.Model(&models.Version{}).Where("id = ?", id).Update("replaced", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) SaveSuggestion(s models.Suggestion) error {
	if err := r.writable(); err != nil {
		return err
	}
	return translate(r.tx.Save(&s).Error)
}

func (r *pgRepo) GetSuggestion(id string) (models.Suggestion, error) {
	var s models.Suggestion
	err := r.tx.Where("id = ?", id).First(&s).Error
	return s, translate(err)
}

func (r *pgRepo) ListSuggestions(f SuggestionFilter) ([]models.Suggestion, error) {
	suggestions := []models.Suggestion{}
	if f.EnvironmentIDs != nil && len(f.EnvironmentIDs) == 0 {
		return suggestions, nil
	}
	q := r.tx.Model(&models.Suggestion{})
	if f.EnvironmentIDs != nil {
		q = q.Where("environment_id IN ?", f.EnvironmentIDs)
	}
	if f.SuggesterID != "" {
		q = q.Where("suggester_id = ?", f.SuggesterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	err := q.Order("creation_date DESC, id DESC").Find(&suggestions).Error
	return suggestions, translate(err)
}

func (r *pgRepo) SaveReport(rep models.Report) error {
	if err := r.writable(); err != nil {
		return err
	}
	return translate(r.tx.Save(&rep).Error)
}

func (r *pgRepo) GetReport(id string) (models.Report, error) {
	var rep models.Report
	err := r.tx.Where("id = ?", id).First(&rep).Error
	return rep, translate(err)
}

func (r *pgRepo) ListReports(f ReportFilter) ([]models.Report, error) {
	reports := []models.Report{}
	q := r.tx.Model(&models.Report{})
	if f.EnvironmentID != "" {
		q = q.Where("environment_id = ?", f.EnvironmentID)
	}
	if f.ReporterID != "" {
		q = q.Where("reporter_id = ?", f.ReporterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	err := q.Order("creation_date DESC, id DESC").Find(&reports).Error
	return reports, translate(err)
}

func (r *pgRepo) HasLike(userID, environmentID string) (bool, error) {
	var count int64
	err := r.tx.Model(&models.Like{}).
		Where("user_id = ? AND environment_id = ?", userID, environmentID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (r *pgRepo) AddLike(l models.Like) error {
	if err := r.writable(); err != nil {
		return err
	}
	return translate(r.tx.Create(&l).Error)
}

func (r *pgRepo) RemoveLike(userID, environmentID string) error {
	if err := r.writable(); err != nil {
		return err
	}
	res := r.tx.Where("user_id = ? AND environment_id = ?", userID, environmentID).Delete(&models.Like{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) LikedEnvironmentIDs(userID string) (map[string]bool, error) {
	var ids []string
	if err := r.tx.Model(&models.Like{}).Where("user_id = ?", userID).Pluck("environment_id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
