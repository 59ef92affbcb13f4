package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/wzyjerry/stray-saver/internal/model"
	"go.uber.org/zap"
)

// FileStore writes one JSON document per report into a directory.
type FileStore struct {
	dir string
	log *zap.Logger
}

func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{dir: dir, log: log}, nil
}

func (s *FileStore) path(id string) (string, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return filepath.Join(s.dir, id+".json"), true
}

// Create writes the report to a temp file and renames it into place, so a
// reader never sees a half-written document.
func (s *FileStore) Create(ctx context.Context, report *model.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, ok := s.path(report.ID)
	if !ok {
		return fmt.Errorf("invalid report id %q", report.ID)
	}
	if _, err := os.Stat(dst); err == nil {
		return ErrDuplicateID
	}

	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (s *FileStore) List(ctx context.Context) ([]model.Report, error) {
	return s.list(ctx, func(*model.Report) bool { return true })
}

func (s *FileStore) ListByReporter(ctx context.Context, uid string) ([]model.Report, error) {
	return s.list(ctx, func(r *model.Report) bool { return r.ReporterUID == uid })
}

// list reads every document, newest first. A document that cannot be read
// or decoded is logged and left out rather than failing the whole listing.
func (s *FileStore) list(ctx context.Context, keep func(*model.Report) bool) ([]model.Report, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	reports := []model.Report{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("Skipping unreadable report", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		if keep(report) {
			reports = append(reports, *report)
		}
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Timestamp.After(reports[j].Timestamp)
	})
	return reports, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, ok := s.path(id)
	if !ok {
		return nil, ErrNotFound
	}
	report, err := s.read(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return report, err
}

func (s *FileStore) read(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &report, nil
}

func (s *FileStore) Close(context.Context) error { return nil }
