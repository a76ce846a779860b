package incident

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"healthwatch/pkg/apperror"
	"healthwatch/pkg/utils"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type incidentRow struct {
	ID                  string    `gorm:"primaryKey;size:191"`
	ServiceName         string    `gorm:"index;not null"`
	Status              string    `gorm:"index;not null"`
	StartTime           time.Time `gorm:"not null"`
	EndTime             *time.Time
	DurationSeconds     *float64
	URL                 string
	StatusCode          int
	ErrorMessage        string
	Reason              string
	ResponseTimeMs      int64
	TimeoutSeconds      float64
	ConsecutiveFailures int
	UpdatedAt           time.Time
}

func (incidentRow) TableName() string { return "incidents" }

// SQLiteStore keeps incidents in an embedded SQLite database through GORM.
type SQLiteStore struct {
	db *gorm.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	const op string = "store.sqlite.new"

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	if err := db.AutoMigrate(&incidentRow{}); err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, inc Incident) error {
	const op string = "store.sqlite.save"

	row := toRow(inc)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	return utils.WrapStoreError(op, err, nil)
}

func (s *SQLiteStore) List(ctx context.Context) ([]Incident, error) {
	const op string = "store.sqlite.list"

	var rows []incidentRow
	if err := s.db.WithContext(ctx).Order("start_time, id").Find(&rows).Error; err != nil {
		return nil, utils.WrapStoreError(op, err, nil)
	}

	out := make([]Incident, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toIncident())
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(inc Incident) incidentRow {
	return incidentRow{
		ID:                  inc.ID,
		ServiceName:         inc.ServiceName,
		Status:              string(inc.Status),
		StartTime:           inc.StartTime,
		EndTime:             inc.EndTime,
		DurationSeconds:     inc.DurationSeconds,
		URL:                 inc.Details.URL,
		StatusCode:          inc.Details.StatusCode,
		ErrorMessage:        inc.Details.Error,
		Reason:              inc.Details.Reason,
		ResponseTimeMs:      inc.Details.ResponseTimeMs,
		TimeoutSeconds:      inc.Details.TimeoutSeconds,
		ConsecutiveFailures: inc.Details.ConsecutiveFailures,
	}
}

func (r incidentRow) toIncident() Incident {
	return Incident{
		ID:              r.ID,
		ServiceName:     r.ServiceName,
		Status:          Status(r.Status),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationSeconds: r.DurationSeconds,
		Details: Details{
			URL:                 r.URL,
			StatusCode:          r.StatusCode,
			Error:               r.ErrorMessage,
			Reason:              r.Reason,
			ResponseTimeMs:      r.ResponseTimeMs,
			TimeoutSeconds:      r.TimeoutSeconds,
			ConsecutiveFailures: r.ConsecutiveFailures,
		},
	}
}
