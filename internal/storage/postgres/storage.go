package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/rps-party-backend/internal/model"
	"github.com/DoyleJ11/rps-party-backend/internal/storage"
)

type Storage struct {
	db *gorm.DB
}

var _ storage.Storage = (*Storage)(nil)

// Open connects with the given DSN and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Storage, error) {
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info("postgres storage ready")
	return s, nil
}

// NewWithDB wraps an already opened connection without migrating.
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate() error {
	if err := s.db.AutoMigrate(&MatchRow{}, &StandingRow{}, &HandRow{}); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}

func (s *Storage) SaveMatch(ctx context.Context, m *model.MatchRecord) error {
	row := toRow(m)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("match_id = ?", m.ID).Delete(&StandingRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", m.ID).Delete(&HandRow{}).Error; err != nil {
			return err
		}
		return tx.Save(&row).Error
	})
}

func (s *Storage) GetMatch(ctx context.Context, id string) (*model.MatchRecord, error) {
	var row MatchRow
	err := s.db.WithContext(ctx).
		Preload("Standings", func(db *gorm.DB) *gorm.DB { return db.Order("rank") }).
		Preload("Hands", func(db *gorm.DB) *gorm.DB { return db.Order("round, id") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *Storage) RecentMatches(ctx context.Context, limit int) ([]*model.MatchRecord, error) {
	q := s.db.WithContext(ctx).
		Preload("Standings", func(db *gorm.DB) *gorm.DB { return db.Order("rank") }).
		Preload("Hands", func(db *gorm.DB) *gorm.DB { return db.Order("round, id") }).
		Order("ended_at desc, id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []MatchRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.MatchRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	q := s.db.WithContext(ctx).Model(&StandingRow{}).
		Select("affiliation, name, count(*) as matches, sum(score) as score, sum(win) as win, sum(draw) as draw, sum(lose) as lose").
		Where("is_bot = ?", false).
		Group("affiliation, name").
		Order("score desc, win desc, draw desc, affiliation, name")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []model.LeaderboardEntry
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
