package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gkmur/letterboxd-cli/internal/core"
)

// SQLiteRepository implements RepositoryPort using SQLite via GORM
type SQLiteRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and migrates it
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), config)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &SQLiteRepository{db: db, now: time.Now}
	if err := repo.Migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

// Migrate runs database migrations
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&core.Account{},
		&core.History{},
	)
}

// GetCredentials returns the active account's credential
func (r *SQLiteRepository) GetCredentials(ctx context.Context) (core.Credential, error) {
	acct, err := r.activeAccount(ctx)
	if err != nil {
		return core.Credential{}, err
	}
	if acct == nil {
		return core.Credential{}, fmt.Errorf("no stored credentials: %w", core.ErrAuthenticationFailure)
	}
	return core.Credential{Username: acct.Identifier, Secret: acct.Secret}, nil
}

// SetCredentials upserts the account keyed by cred.Username and makes it the
// only active one.
func (r *SQLiteRepository) SetCredentials(ctx context.Context, cred core.Credential) error {
	if cred.Username == "" || cred.Secret == "" {
		return errors.New("username and password are required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&core.Account{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}

		var acct core.Account
		err := tx.Where("identifier = ?", cred.Username).First(&acct).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			acct = core.Account{Identifier: cred.Username, Secret: cred.Secret, Active: true}
			return tx.Create(&acct).Error
		case err != nil:
			return err
		}

		return tx.Model(&acct).Updates(map[string]interface{}{
			"secret":     cred.Secret,
			"active":     true,
			"updated_at": r.now(),
		}).Error
	})
}

// ClearCredentials deletes the active account
func (r *SQLiteRepository) ClearCredentials(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("active = ?", true).Delete(&core.Account{}).Error
}

// SetProfileName stores the profile name scraped for the active account
func (r *SQLiteRepository) SetProfileName(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).
		Model(&core.Account{}).
		Where("active = ?", true).
		Updates(map[string]interface{}{
			"profile_name": name,
			"updated_at":   r.now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no active account: %w", core.ErrAuthenticationFailure)
	}
	return nil
}

// GetProfileName returns the stored profile name, or "" when none is known
func (r *SQLiteRepository) GetProfileName(ctx context.Context) (string, error) {
	acct, err := r.activeAccount(ctx)
	if err != nil || acct == nil {
		return "", err
	}
	return acct.ProfileName, nil
}

func (r *SQLiteRepository) activeAccount(ctx context.Context) (*core.Account, error) {
	var acct core.Account
	result := r.db.WithContext(ctx).Where("active = ?", true).First(&acct)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &acct, nil
}

// CreateHistory creates a new history record
func (r *SQLiteRepository) CreateHistory(ctx context.Context, history *core.History) error {
	if history.Timestamp.IsZero() {
		history.Timestamp = r.now()
	}
	return r.db.WithContext(ctx).Create(history).Error
}

// GetTodayActionCount counts mutations recorded since local midnight
func (r *SQLiteRepository) GetTodayActionCount(ctx context.Context) (int64, error) {
	now := r.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int64
	result := r.db.WithContext(ctx).
		Model(&core.History{}).
		Where("action_type IN ? AND timestamp >= ?", core.MutationActions, startOfDay).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// GetRecentHistory returns the newest history records first
func (r *SQLiteRepository) GetRecentHistory(ctx context.Context, limit int) ([]*core.History, error) {
	var histories []*core.History
	result := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&histories)
	if result.Error != nil {
		return nil, result.Error
	}
	return histories, nil
}

// CanPerformAction checks today's mutation count against dailyLimit. A
// non-positive limit disables the check.
func (r *SQLiteRepository) CanPerformAction(ctx context.Context, dailyLimit int) (bool, error) {
	if dailyLimit <= 0 {
		return true, nil
	}
	count, err := r.GetTodayActionCount(ctx)
	if err != nil {
		return false, err
	}
	return count < int64(dailyLimit), nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
