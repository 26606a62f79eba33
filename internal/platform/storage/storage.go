// Package storage persists finished captioning sessions and the account
// records that access checks read: membership roles, subscriptions, and
// per-period usage.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"captionkit-server-go/internal/platform/config"
	platformerrors "captionkit-server-go/internal/platform/errors"
	"captionkit-server-go/internal/platform/logging"
)

// SessionRecord is one captioning session. Data holds the default caption
// sequence as JSON.
type SessionRecord struct {
	ID           string         `gorm:"primaryKey"`
	AccountID    string         `gorm:"index"`
	ProfileID    string         `gorm:"index"`
	Language     string
	Translations datatypes.JSON
	Data         datatypes.JSON
	Duration     float64
	StartedAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TranslationRecord holds one language's translated caption sequence for a
// finished session.
type TranslationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	AccountID string `gorm:"index"`
	Language  string
	Data      datatypes.JSON
	CreatedAt time.Time
}

// AccountUser links a user to an account with a role.
type AccountUser struct {
	ID        uint   `gorm:"primaryKey"`
	AccountID string `gorm:"index:idx_account_user,unique"`
	UserID    string `gorm:"index:idx_account_user,unique"`
	Role      string
}

// Subscription is an account's captioning plan.
type Subscription struct {
	AccountID          string `gorm:"primaryKey"`
	Hours              int
	CurrentPeriodStart time.Time
	IsActive           bool
}

// Store wraps the database handle.
type Store struct {
	db     *gorm.DB
	logger *logging.Logger
}

// Open opens (or creates) the sqlite database under cfg.Dir and migrates
// the schema.
func Open(cfg config.StorageConfig, logger *logging.Logger) (*Store, error) {
	dsn := filepath.Join(cfg.Dir, "captionkit.db")
	return open(dsn, logger)
}

// OpenInMemory opens a private in-memory database. Used by tests. Each call
// gets its own database; cache=shared keeps it alive across pooled
// connections.
func OpenInMemory(logger *logging.Logger) (*Store, error) {
	name := fmt.Sprintf("file:mem%d?mode=memory&cache=shared", memSeq.Add(1))
	return open(name, logger)
}

var memSeq atomic.Int64

func open(dsn string, logger *logging.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"failed to open database", err)
	}

	if err := db.AutoMigrate(
		&SessionRecord{},
		&TranslationRecord{},
		&AccountUser{},
		&Subscription{},
	); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.open",
			"migration failed", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// InitSession creates the session row when the first caption lands.
func (s *Store) InitSession(ctx context.Context, rec SessionRecord) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage.init_session",
			"failed to create session record", err)
	}
	return nil
}

// UpdateDuration bumps the running duration of a live session.
func (s *Store) UpdateDuration(ctx context.Context, sessionID string, duration float64) error {
	err := s.db.WithContext(ctx).
		Model(&SessionRecord{}).
		Where("id = ?", sessionID).
		Update("duration", duration).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage.update_duration",
			"failed to update session duration", err)
	}
	return nil
}

// PersistSession writes the final session row and its translation rows.
// Called once when a session closes; the session upsert keeps rerunning safe.
func (s *Store) PersistSession(ctx context.Context, rec SessionRecord, translations []TranslationRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&rec).Error; err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, "storage.persist_session",
				"failed to save session record", err)
		}
		for i := range translations {
			if err := tx.Create(&translations[i]).Error; err != nil {
				return platformerrors.Wrap(platformerrors.KindStorage, "storage.persist_session",
					"failed to save translation record", err)
			}
		}
		return nil
	})
}

// Session loads one session record by id.
func (s *Store) Session(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", sessionID).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.session",
			"session not found", err)
	}
	return &rec, nil
}

// SessionTranslations loads the translation rows for a session.
func (s *Store) SessionTranslations(ctx context.Context, sessionID string) ([]TranslationRecord, error) {
	var recs []TranslationRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.session_translations",
			"failed to load translations", err)
	}
	return recs, nil
}

// AccountRole returns the membership role a user holds on an account, or
// empty when the user is not a member.
func (s *Store) AccountRole(ctx context.Context, userID, accountID string) (string, error) {
	var member AccountUser
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND account_id = ?", userID, accountID).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", platformerrors.Wrap(platformerrors.KindStorage, "storage.account_role",
			"membership lookup failed", err)
	}
	return member.Role, nil
}

// ActiveSubscription returns the account's subscription when it has an
// active one.
func (s *Store) ActiveSubscription(ctx context.Context, accountID string) (*Subscription, error) {
	var sub Subscription
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID, true).
		First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, platformerrors.Wrap(platformerrors.KindStorage, "storage.subscription",
			"subscription lookup failed", err)
	}
	return &sub, nil
}

// UsageSince sums session durations for an account from a period start.
func (s *Store) UsageSince(ctx context.Context, accountID string, since time.Time) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&SessionRecord{}).
		Select("COALESCE(SUM(duration), 0)").
		Where("account_id = ? AND started_at >= ?", accountID, since).
		Scan(&total).Error
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindStorage, "storage.usage",
			"usage query failed", err)
	}
	return total, nil
}

// UpsertAccountUser and UpsertSubscription seed membership data. Used by
// tests and provisioning tooling.
func (s *Store) UpsertAccountUser(ctx context.Context, member AccountUser) error {
	return s.db.WithContext(ctx).Save(&member).Error
}

func (s *Store) UpsertSubscription(ctx context.Context, sub Subscription) error {
	return s.db.WithContext(ctx).Save(&sub).Error
}
