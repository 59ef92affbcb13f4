package repository

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/config"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps reports in a Firestore collection, one document per
// report keyed by its id.
type FirestoreStore struct {
	client *firestore.Client
	col    *firestore.CollectionRef
}

// NewFirestoreStore connects with the service-account file named in cfg,
// or with application default credentials when none is given.
// FIRESTORE_EMULATOR_HOST is honoured by the client library.
func NewFirestoreStore(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &FirestoreStore{client: client, col: client.Collection(cfg.Collection)}, nil
}

func (s *FirestoreStore) Create(ctx context.Context, report *model.Report) error {
	_, err := s.col.Doc(report.ID).Create(ctx, report)
	if status.Code(err) == codes.AlreadyExists {
		return ErrDuplicateID
	}
	return err
}

func (s *FirestoreStore) List(ctx context.Context) ([]model.Report, error) {
	return s.query(ctx, s.col.OrderBy("timestamp", firestore.Desc))
}

// ListByReporter needs a composite index on (reporter_uid, timestamp desc)
// in a real project; the emulator does not.
func (s *FirestoreStore) ListByReporter(ctx context.Context, uid string) ([]model.Report, error) {
	return s.query(ctx, s.col.Where("reporter_uid", "==", uid).OrderBy("timestamp", firestore.Desc))
}

func (s *FirestoreStore) query(ctx context.Context, q firestore.Query) ([]model.Report, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	reports := make([]model.Report, 0, len(docs))
	for _, doc := range docs {
		var report model.Report
		if err := doc.DataTo(&report); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		report.ID = doc.Ref.ID
		reports = append(reports, report)
	}
	return reports, nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (*model.Report, error) {
	// a slash would address a different collection
	if id == "" || strings.Contains(id, "/") {
		return nil, ErrNotFound
	}
	doc, err := s.col.Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var report model.Report
	if err := doc.DataTo(&report); err != nil {
		return nil, err
	}
	report.ID = doc.Ref.ID
	return &report, nil
}

func (s *FirestoreStore) Close(context.Context) error {
	return s.client.Close()
}
