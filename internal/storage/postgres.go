package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Postgres is a Store backed by PostgreSQL through gorm.
type Postgres struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgres connects to the database described by dsn. Debug mode logs every SQL statement.
func NewPostgres(dsn string, log *zap.Logger, debug bool) (*Postgres, error) {
	if log == nil {
		log = zap.NewNop()
	}

	level := logger.Silent
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if debug {
		db = db.Debug()
	}

	log.Info("connected to database")

	return &Postgres{db: db, logger: log}, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	models := []interface{}{&User{}, &VacancyFilter{}, &Vacancy{}, &Interaction{}}
	for _, model := range models {
		if err := p.db.WithContext(ctx).AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	p.logger.Info("database schema migrated")
	return nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	var user User
	err := p.db.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (p *Postgres) SaveUser(ctx context.Context, user *User) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		UpdateAll: true,
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("save user %d: %w", user.TelegramID, err)
	}
	return nil
}

func (p *Postgres) GetFilter(ctx context.Context, telegramID int64) (*VacancyFilter, error) {
	var filter VacancyFilter
	err := p.db.WithContext(ctx).First(&filter, "telegram_id = ?", telegramID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &filter, nil
}

func (p *Postgres) SaveFilter(ctx context.Context, filter *VacancyFilter) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		UpdateAll: true,
	}).Create(filter).Error
	if err != nil {
		return fmt.Errorf("save filter %d: %w", filter.TelegramID, err)
	}
	return nil
}

func (p *Postgres) ListActiveFilters(ctx context.Context) ([]*VacancyFilter, error) {
	list := []*VacancyFilter{}
	err := p.db.WithContext(ctx).
		Model(&VacancyFilter{}).
		Where("COALESCE(desired_position, '') <> '' OR COALESCE(city, '') <> ''").
		Order("telegram_id").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list active filters: %w", err)
	}
	return list, nil
}

func (p *Postgres) SaveVacancy(ctx context.Context, vacancy *Vacancy) error {
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(vacancy).Error
	if err != nil {
		return fmt.Errorf("save vacancy %s: %w", vacancy.ExternalID, err)
	}
	return nil
}

func (p *Postgres) GetVacancy(ctx context.Context, externalID string) (*Vacancy, error) {
	var vacancy Vacancy
	err := p.db.WithContext(ctx).First(&vacancy, "external_id = ?", externalID).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &vacancy, nil
}

func (p *Postgres) MarkNotInteresting(ctx context.Context, telegramID int64, externalID string) error {
	return p.markInteraction(ctx, telegramID, externalID, columnIsInteresting)
}

func (p *Postgres) MarkResumeGenerated(ctx context.Context, telegramID int64, externalID string) error {
	return p.markInteraction(ctx, telegramID, externalID, columnResumeGenerated)
}

func (p *Postgres) MarkCoverLetterGenerated(ctx context.Context, telegramID int64, externalID string) error {
	return p.markInteraction(ctx, telegramID, externalID, columnCoverLetterGenerated)
}

// markInteraction upserts the interaction row touching only column and interacted_at.
func (p *Postgres) markInteraction(ctx context.Context, telegramID int64, externalID string, column interactionColumn) error {
	rec := Interaction{
		TelegramID:        telegramID,
		VacancyExternalID: externalID,
		InteractedAt:      time.Now(),
	}
	column.apply(&rec)

	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}, {Name: "vacancy_external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{string(column), "interacted_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("mark %s for %d/%s: %w", column, telegramID, externalID, err)
	}
	return nil
}

func (p *Postgres) NotInterestingIDs(ctx context.Context, telegramID int64) ([]string, error) {
	var ids []string
	err := p.db.WithContext(ctx).
		Model(&Interaction{}).
		Where("telegram_id = ? AND is_interesting = ?", telegramID, false).
		Pluck("vacancy_external_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list not interesting vacancies of %d: %w", telegramID, err)
	}
	return ids, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
