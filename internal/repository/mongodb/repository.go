// Package mongodb persists the durable side of the application: asset
// masters, survey items, applications, loans, column bookmarks and the
// match event trail.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yshioka/equipmatch/internal/domain/models"
	"github.com/yshioka/equipmatch/internal/service/applications"
	"github.com/yshioka/equipmatch/internal/service/assets"
	"github.com/yshioka/equipmatch/internal/service/loans"
)

const (
	collAssets       = "assets"
	collSurveyItems  = "survey_items"
	collApplications = "applications"
	collLoans        = "loans"
	collBookmarks    = "column_bookmarks"
	collMatchEvents  = "match_events"
)

// MongoDBRepository implements the persistence interfaces of the asset,
// application, loan and matching services.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, dbName: dbName}, nil
}

func (r *MongoDBRepository) coll(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// LoadSurvey returns the stored physical-survey rows for the main matching
// window.
func (r *MongoDBRepository) LoadSurvey(ctx context.Context) ([]models.MatchableRecord, error) {
	cursor, err := r.coll(collSurveyItems).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find survey items: %w", err)
	}
	var records []models.MatchableRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode survey items: %w", err)
	}
	return records, nil
}

// ReplaceSurvey swaps the stored survey dataset, e.g. after an inventory
// walk import.
func (r *MongoDBRepository) ReplaceSurvey(ctx context.Context, records []models.MatchableRecord) error {
	coll := r.coll(collSurveyItems)
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear survey items: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert survey items: %w", err)
	}
	return nil
}

// SaveMatchEvent appends one engine transition to the trail.
func (r *MongoDBRepository) SaveMatchEvent(ctx context.Context, event models.MatchEvent) error {
	if _, err := r.coll(collMatchEvents).InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert match event: %w", err)
	}
	return nil
}

// ListAssets returns every asset-master row.
func (r *MongoDBRepository) ListAssets(ctx context.Context) ([]models.Asset, error) {
	cursor, err := r.coll(collAssets).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find assets: %w", err)
	}
	var assets []models.Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return assets, nil
}

// InsertBookmark stores a column preset.
func (r *MongoDBRepository) InsertBookmark(ctx context.Context, bookmark models.ColumnBookmark) error {
	if _, err := r.coll(collBookmarks).InsertOne(ctx, bookmark); err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}

// ListBookmarks returns the saved column presets, newest first.
func (r *MongoDBRepository) ListBookmarks(ctx context.Context) ([]models.ColumnBookmark, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll(collBookmarks).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookmarks: %w", err)
	}
	var bookmarks []models.ColumnBookmark
	if err := cursor.All(ctx, &bookmarks); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	return bookmarks, nil
}

// DeleteBookmark removes a column preset.
func (r *MongoDBRepository) DeleteBookmark(ctx context.Context, id string) error {
	res, err := r.coll(collBookmarks).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if res.DeletedCount == 0 {
		return assets.ErrBookmarkNotFound
	}
	return nil
}

// InsertApplication stores a new application.
func (r *MongoDBRepository) InsertApplication(ctx context.Context, app models.Application) error {
	if _, err := r.coll(collApplications).InsertOne(ctx, app); err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// UpdateApplication replaces a stored application.
func (r *MongoDBRepository) UpdateApplication(ctx context.Context, app models.Application) error {
	res, err := r.coll(collApplications).ReplaceOne(ctx, bson.M{"_id": app.ID}, app)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if res.MatchedCount == 0 {
		return applications.ErrApplicationNotFound
	}
	return nil
}

// FindApplication looks an application up by ID.
func (r *MongoDBRepository) FindApplication(ctx context.Context, id string) (models.Application, error) {
	var app models.Application
	err := r.coll(collApplications).FindOne(ctx, bson.M{"_id": id}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Application{}, applications.ErrApplicationNotFound
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

// ListApplications returns applications, optionally narrowed to a status.
func (r *MongoDBRepository) ListApplications(ctx context.Context, status models.ApplicationStatus) ([]models.Application, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll(collApplications).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find applications: %w", err)
	}
	var apps []models.Application
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, fmt.Errorf("decode applications: %w", err)
	}
	return apps, nil
}

// InsertLoan stores a new loan.
func (r *MongoDBRepository) InsertLoan(ctx context.Context, loan models.Loan) error {
	if _, err := r.coll(collLoans).InsertOne(ctx, loan); err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// UpdateLoan replaces a stored loan.
func (r *MongoDBRepository) UpdateLoan(ctx context.Context, loan models.Loan) error {
	res, err := r.coll(collLoans).ReplaceOne(ctx, bson.M{"_id": loan.ID}, loan)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if res.MatchedCount == 0 {
		return loans.ErrLoanNotFound
	}
	return nil
}

// FindLoan looks a loan up by ID.
func (r *MongoDBRepository) FindLoan(ctx context.Context, id string) (models.Loan, error) {
	var loan models.Loan
	err := r.coll(collLoans).FindOne(ctx, bson.M{"_id": id}).Decode(&loan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Loan{}, loans.ErrLoanNotFound
	}
	if err != nil {
		return models.Loan{}, fmt.Errorf("find loan: %w", err)
	}
	return loan, nil
}

// FindActiveLoanByAsset returns the asset's open loan, if any.
func (r *MongoDBRepository) FindActiveLoanByAsset(ctx context.Context, assetID string) (models.Loan, bool, error) {
	var loan models.Loan
	err := r.coll(collLoans).FindOne(ctx, bson.M{"asset_id": assetID, "returned_at": nil}).Decode(&loan)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Loan{}, false, nil
	}
	if err != nil {
		return models.Loan{}, false, fmt.Errorf("find active loan: %w", err)
	}
	return loan, true, nil
}

// ListLoans returns loans, optionally only the active ones, newest first.
func (r *MongoDBRepository) ListLoans(ctx context.Context, activeOnly bool) ([]models.Loan, error) {
	filter := bson.M{}
	if activeOnly {
		filter["returned_at"] = nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "borrowed_at", Value: -1}})
	cursor, err := r.coll(collLoans).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find loans: %w", err)
	}
	var out []models.Loan
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode loans: %w", err)
	}
	return out, nil
}
