package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/config"
	"go.uber.org/zap"
)

var (
	ErrNotFound    = errors.New("report not found")
	ErrDuplicateID = errors.New("report id already exists")
)

// ReportStore persists reports. Implementations only ever insert; List
// returns every report ordered by timestamp, newest first, and
// ListByReporter the same restricted to one reporter uid.
type ReportStore interface {
	Create(ctx context.Context, report *model.Report) error
	List(ctx context.Context) ([]model.Report, error)
	ListByReporter(ctx context.Context, uid string) ([]model.Report, error)
	Get(ctx context.Context, id string) (*model.Report, error)
	Close(ctx context.Context) error
}

// Open connects the backend named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (ReportStore, error) {
	log = log.With(zap.String("component", "repository"), zap.String("backend", cfg.Storage.Backend))

	var (
		store ReportStore
		err   error
	)
	switch cfg.Storage.Backend {
	case config.BackendFile:
		store, err = NewFileStore(cfg.Storage.File.Dir, log)
	case config.BackendSQLite:
		store, err = NewSQLiteStore(cfg.Storage.SQLite.Path)
	case config.BackendMongo:
		store, err = NewMongoStore(ctx, cfg.Storage.Mongo, log)
	case config.BackendFirestore:
		store, err = NewFirestoreStore(ctx, cfg.Storage.Firestore)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Report store ready")
	return store, nil
}
