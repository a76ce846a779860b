package incident

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"healthwatch/pkg/apperror"

	"github.com/goccy/go-yaml"
)

const fileExt = ".yaml"

// FileStore writes one YAML document per incident, named <id>.yaml.
type FileStore struct {
	dir string
}

type fileRecord struct {
	ID              string      `yaml:"id"`
	ServiceName     string      `yaml:"service_name"`
	Status          Status      `yaml:"status"`
	StartTime       string      `yaml:"start_time"`
	EndTime         string      `yaml:"end_time,omitempty"`
	DurationSeconds *float64    `yaml:"duration_seconds,omitempty"`
	Details         fileDetails `yaml:"details"`
}

type fileDetails struct {
	URL                 string  `yaml:"url"`
	StatusCode          int     `yaml:"status_code"`
	Error               string  `yaml:"error,omitempty"`
	Reason              string  `yaml:"reason,omitempty"`
	ResponseTimeMs      int64   `yaml:"response_time_ms"`
	TimeoutSeconds      float64 `yaml:"timeout_seconds"`
	ConsecutiveFailures int     `yaml:"consecutive_failures"`
}

func NewFileStore(dir string) (*FileStore, error) {
	const op string = "store.file.new"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes to a temp file and renames it over the target, so a crash
// leaves either the old or the new record.
func (s *FileStore) Save(ctx context.Context, inc Incident) error {
	const op string = "store.file.save"

	if err := ctx.Err(); err != nil {
		return apperror.New(apperror.RequestTimeout, op, err)
	}

	data, err := yaml.Marshal(toFileRecord(inc))
	if err != nil {
		return apperror.New(apperror.Internal, op, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+inc.ID+"-*.tmp")
	if err != nil {
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	if err := os.Rename(tmpName, s.path(inc.ID)); err != nil {
		os.Remove(tmpName)
		return apperror.New(apperror.DatabaseErr, op, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Incident, error) {
	const op string = "store.file.list"

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperror.New(apperror.DatabaseErr, op, err)
	}

	out := make([]Incident, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, apperror.New(apperror.RequestTimeout, op, err)
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, err)
		}
		var rec fileRecord
		if err := yaml.Unmarshal(data, &rec); err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, fmt.Errorf("%s: %w", name, err))
		}
		inc, err := rec.toIncident()
		if err != nil {
			return nil, apperror.New(apperror.DatabaseErr, op, fmt.Errorf("%s: %w", name, err))
		}
		out = append(out, inc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

func toFileRecord(inc Incident) fileRecord {
	rec := fileRecord{
		ID:              inc.ID,
		ServiceName:     inc.ServiceName,
		Status:          inc.Status,
		StartTime:       inc.StartTime.Format(time.RFC3339Nano),
		DurationSeconds: inc.DurationSeconds,
		Details: fileDetails{
			URL:                 inc.Details.URL,
			StatusCode:          inc.Details.StatusCode,
			Error:               inc.Details.Error,
			Reason:              inc.Details.Reason,
			ResponseTimeMs:      inc.Details.ResponseTimeMs,
			TimeoutSeconds:      inc.Details.TimeoutSeconds,
			ConsecutiveFailures: inc.Details.ConsecutiveFailures,
		},
	}
	if inc.EndTime != nil {
		rec.EndTime = inc.EndTime.Format(time.RFC3339Nano)
	}
	return rec
}

func (r fileRecord) toIncident() (Incident, error) {
	start, err := time.Parse(time.RFC3339Nano, r.StartTime)
	if err != nil {
		return Incident{}, fmt.Errorf("start_time: %w", err)
	}
	inc := Incident{
		ID:              r.ID,
		ServiceName:     r.ServiceName,
		Status:          r.Status,
		StartTime:       start,
		DurationSeconds: r.DurationSeconds,
		Details: Details{
			URL:                 r.Details.URL,
			StatusCode:          r.Details.StatusCode,
			Error:               r.Details.Error,
			Reason:              r.Details.Reason,
			ResponseTimeMs:      r.Details.ResponseTimeMs,
			TimeoutSeconds:      r.Details.TimeoutSeconds,
			ConsecutiveFailures: r.Details.ConsecutiveFailures,
		},
	}
	if r.EndTime != "" {
		end, err := time.Parse(time.RFC3339Nano, r.EndTime)
		if err != nil {
			return Incident{}, fmt.Errorf("end_time: %w", err)
		}
		inc.EndTime = &end
	}
	return inc, nil
}
