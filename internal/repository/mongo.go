package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wzyjerry/stray-saver/internal/model"
	"github.com/wzyjerry/stray-saver/internal/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore keeps one document per report in a collection.
type MongoStore struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewMongoStore(ctx context.Context, cfg config.MongoConfig, log *zap.Logger) (*MongoStore, error) {
	start := time.Now()
	log.Info("mongo: connecting",
		zap.String("uri", redactURI(cfg.URI)),
		zap.String("db", cfg.Database))

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err = c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoStore{client: c, col: c.Database(cfg.Database).Collection(cfg.Collection)}

	if _, err := s.col.Indexes().CreateMany(dctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "reporter_uid", Value: 1}, {Key: "timestamp", Value: -1}}},
	}); err != nil {
		log.Warn("mongo: index creation failed", zap.Error(err))
	}

	log.Info("mongo: connected", zap.Duration("took", time.Since(start).Round(time.Millisecond)))
	return s, nil
}

func (s *MongoStore) Create(ctx context.Context, report *model.Report) error {
	_, err := s.col.InsertOne(ctx, report)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *MongoStore) List(ctx context.Context) ([]model.Report, error) {
	return s.find(ctx, bson.D{})
}

func (s *MongoStore) ListByReporter(ctx context.Context, uid string) ([]model.Report, error) {
	return s.find(ctx, bson.D{{Key: "reporter_uid", Value: uid}})
}

func (s *MongoStore) find(ctx context.Context, filter bson.D) ([]model.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reports := []model.Report{}
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
