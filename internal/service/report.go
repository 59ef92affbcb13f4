package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/metrics"
	"github.com/wzyjerry/stray-saver/internal/repository"
	"go.uber.org/zap"
)

// ValidationError lists the required form fields that were empty.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// Clock hands out timestamps that never go backwards, even if the wall
// clock does. Timestamps have millisecond precision, the coarsest any
// backend stores, so a report reads back exactly as it was written.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// ReportService validates submissions and talks to the report store.
type ReportService struct {
	store   repository.ReportStore
	uploads *Uploads
	clock   *Clock
	timeout time.Duration
	backend string
	metrics *metrics.Metrics
	log     *zap.Logger
}

type ReportServiceOptions struct {
	Store   repository.ReportStore
	Uploads *Uploads
	Clock   *Clock
	Timeout time.Duration
	Backend string
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func NewReportService(opts ReportServiceOptions) *ReportService {
	if opts.Clock == nil {
		opts.Clock = NewClock()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	return &ReportService{
		store:   opts.Store,
		uploads: opts.Uploads,
		clock:   opts.Clock,
		timeout: opts.Timeout,
		backend: opts.Backend,
		metrics: opts.Metrics,
		log:     opts.Log.With(zap.String("component", "reports")),
	}
}

// ValidateReport trims the form in place and checks the required fields.
// A location is either free text or a latitude/longitude pair.
func ValidateReport(form *model.ReportForm) error {
	for _, f := range []*string{
		&form.Location, &form.Latitude, &form.Longitude, &form.SeverityLevel,
		&form.SeverityType, &form.RoadBlock, &form.ImageURL, &form.Notes, &form.Landmark,
	} {
		*f = strings.TrimSpace(*f)
	}

	var missing []string
	if form.Location == "" {
		if form.Latitude == "" {
			missing = append(missing, "latitude")
		}
		if form.Longitude == "" {
			missing = append(missing, "longitude")
		}
	}
	if form.SeverityLevel == "" {
		missing = append(missing, "severity_level")
	}
	if form.SeverityType == "" {
		missing = append(missing, "severity_type")
	}
	if form.RoadBlock == "" {
		missing = append(missing, "road_block")
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Submit validates the form, stores the optional image, and creates exactly
// one report owned by uid. Nothing is written when validation fails.
func (s *ReportService) Submit(ctx context.Context, uid string, form *model.ReportForm, image *multipart.FileHeader) (*model.Report, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("submit: empty reporter uid")
	}
	if err := ValidateReport(form); err != nil {
		s.metrics.ReportFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	imageURL := form.ImageURL
	if image != nil {
		if err := s.uploads.Check(image); err != nil {
			s.metrics.ReportFailures.WithLabelValues("validation").Inc()
			return nil, err
		}
		saved, err := s.uploads.Save(image)
		if err != nil {
			s.metrics.ReportFailures.WithLabelValues("upload").Inc()
			s.log.Error("Failed to save upload", zap.String("filename", image.Filename), zap.Error(err))
			return nil, fmt.Errorf("save upload: %w", err)
		}
		imageURL = saved
	}

	report := &model.Report{
		ID:            uuid.NewString(),
		Location:      form.Location,
		Latitude:      form.Latitude,
		Longitude:     form.Longitude,
		SeverityLevel: form.SeverityLevel,
		SeverityType:  form.SeverityType,
		RoadBlock:     form.RoadBlock,
		ImageURL:      imageURL,
		Notes:         form.Notes,
		Landmark:      form.Landmark,
		Timestamp:     s.clock.Now(),
		ReporterUID:   uid,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Create(ctx, report); err != nil {
		s.metrics.ReportFailures.WithLabelValues("store").Inc()
		s.log.Error("Failed to create report", zap.String("id", report.ID), zap.Error(err))
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.metrics.ReportsCreated.WithLabelValues(s.backend).Inc()
	s.log.Info("Report created",
		zap.String("id", report.ID),
		zap.String("reporter_uid", uid),
		zap.String("severity_level", report.SeverityLevel))
	return report, nil
}

// List returns every report, newest first.
func (s *ReportService) List(ctx context.Context) ([]model.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reports, err := s.store.List(ctx)
	if err != nil {
		s.log.Error("Failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ListByReporter returns the reports filed by uid, newest first.
func (s *ReportService) ListByReporter(ctx context.Context, uid string) ([]model.Report, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("list reports: empty reporter uid")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reports, err := s.store.ListByReporter(ctx, uid)
	if err != nil {
		s.log.Error("Failed to list reports", zap.String("reporter_uid", uid), zap.Error(err))
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Get returns one report or repository.ErrNotFound.
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.store.Get(ctx, id)
}
