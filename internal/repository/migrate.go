package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/logger"
	"gorm.io/gorm"
)

// ErrSchemaTooNew is returned when the database was migrated by a newer binary.
var ErrSchemaTooNew = errors.New("database schema is newer than this binary")

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// classificationColumns are owned by the classifier and appended to video_details.
var classificationColumns = []struct {
	Name string
	Type string
}{
	{"review_category", "TEXT"},
	{"review_rationale", "TEXT"},
	{"confidence_score", "INTEGER"},
	{"sponsored", "BOOLEAN"},
	{"transcript_word_count", "INTEGER"},
	{"transcript_char_length", "INTEGER"},
}

// migrations lists every schema version in order. Never edit an applied
// step; append a new one.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_core_tables",
		Up: func(tx *gorm.DB) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS legosets (
					number         TEXT PRIMARY KEY,
					set_name       TEXT,
					theme          TEXT,
					year_from      TEXT,
					packaging_type TEXT,
					launch_date    TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS videos (
					video_id             TEXT PRIMARY KEY,
					title                TEXT,
					uploader             TEXT,
					upload_date          TEXT,
					views                BIGINT,
					duration             INTEGER,
					transcript_available BOOLEAN,
					languages            TEXT,
					lego_number          TEXT NOT NULL REFERENCES legosets(number)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_videos_lego_number ON videos (lego_number)`,
				`CREATE TABLE IF NOT EXISTS video_details (
					video_id    TEXT PRIMARY KEY REFERENCES videos(video_id),
					description TEXT,
					transcript  TEXT
				)`,
			)
		},
	},
	{
		Version: 2,
		Name:    "add_classification_columns",
		Up: func(tx *gorm.DB) error {
			// Databases built by earlier tooling may already carry some of these.
			for _, col := range classificationColumns {
				if tx.Migrator().HasColumn(&domain.TranscriptDetail{}, col.Name) {
					continue
				}
				stmt := fmt.Sprintf("ALTER TABLE video_details ADD COLUMN %s %s", col.Name, col.Type)
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("add column %s: %w", col.Name, err)
				}
			}
			return nil
		},
	},
	{
		Version: 3,
		Name:    "create_pipeline_runs",
		Up: func(tx *gorm.DB) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS pipeline_runs (
					id              TEXT PRIMARY KEY,
					stage           TEXT NOT NULL,
					status          TEXT NOT NULL,
					total_items     BIGINT NOT NULL DEFAULT 0,
					processed_items BIGINT NOT NULL DEFAULT 0,
					skipped_items   BIGINT NOT NULL DEFAULT 0,
					failed_items    BIGINT NOT NULL DEFAULT 0,
					started_at      TIMESTAMP NOT NULL,
					finished_at     TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_stage ON pipeline_runs (stage)`,
			)
		},
	},
}

// LatestSchemaVersion is the version a fully migrated database reports.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].Version
}

// Migrate applies every migration newer than the recorded schema version.
// Each step commits together with its schema_migrations row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - db: database handle.
// Returns:
//   - int: number of steps applied in this call.
//   - error: non-nil if a step fails or the schema is newer than known.
func Migrate(ctx context.Context, db *gorm.DB) (int, error) {
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&domain.SchemaMigration{}); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}
	if current > LatestSchemaVersion() {
		return 0, fmt.Errorf("%w: database at v%d, binary knows v%d", ErrSchemaTooNew, current, LatestSchemaVersion())
	}

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&domain.SchemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration v%d (%s): %w", m.Version, m.Name, err)
		}
		applied++
		logger.CtxInfo(ctx, "Applied schema migration v%d %s", m.Version, m.Name)
	}

	return applied, nil
}

// SchemaVersion returns the highest applied migration version, or 0.
func SchemaVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var version int
	err := db.WithContext(ctx).
		Model(&domain.SchemaMigration{}).
		Select("COALESCE(MAX(version), 0)").
		Row().
		Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func execAll(tx *gorm.DB, statements ...string) error {
	for _, stmt := range statements {
		if err := tx.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
