package mongo

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/repository"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	checkInCollectionName = "check_ins"
	// One document per client, bumped inside every booking transaction so
	// that concurrent transactions for the same client write-conflict.
	guardCollectionName = "checkin_guards"

	scheduledSlotIndexName = "uniq_scheduled_slot"
)

// mongoCheckInRepository implements repository.CheckInRepository
type mongoCheckInRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	guards     *mongo.Collection
}

// NewMongoCheckInRepository creates a new CheckIn repository backed by MongoDB.
func NewMongoCheckInRepository(db *mongo.Database) repository.CheckInRepository {
	return &mongoCheckInRepository{
		client:     db.Client(),
		collection: db.Collection(checkInCollectionName),
		guards:     db.Collection(guardCollectionName),
	}
}

// Create inserts a new check-in. The partial unique index on scheduledAt
// turns a second scheduled booking of the same slot into ErrSlotTaken.
func (r *mongoCheckInRepository) Create(ctx context.Context, checkIn *domain.CheckIn) (string, error) {
	if checkIn.ClientID == "" || checkIn.ScheduledAt.IsZero() {
		return "", errors.New("check-in requires clientId and scheduledAt")
	}

	checkIn.ID = primitive.NewObjectID().Hex()
	now := time.Now().UTC()
	checkIn.CreatedAt = now
	checkIn.UpdatedAt = now
	if checkIn.Status == "" {
		checkIn.Status = domain.StatusScheduled
	}

	if _, err := r.collection.InsertOne(ctx, checkIn); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrSlotTaken
		}
		return "", err
	}
	return checkIn.ID, nil
}

// GetByID retrieves a check-in by its ID.
func (r *mongoCheckInRepository) GetByID(ctx context.Context, id string) (*domain.CheckIn, error) {
	var checkIn domain.CheckIn
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&checkIn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &checkIn, nil
}

// List retrieves check-ins matching filter, earliest slot first.
func (r *mongoCheckInRepository) List(ctx context.Context, filter repository.CheckInFilter) ([]domain.CheckIn, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, listFilter(filter), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	checkIns := make([]domain.CheckIn, 0)
	if err = cursor.All(ctx, &checkIns); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return checkIns, nil
}

func listFilter(f repository.CheckInFilter) bson.M {
	filter := bson.M{}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}

	window := bson.M{}
	if f.From != nil {
		window["$gte"] = f.From.UTC()
	}
	if f.To != nil {
		window["$lt"] = f.To.UTC()
	}
	if len(window) > 0 {
		filter["scheduledAt"] = window
	}

	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return filter
}

// Update sets the notes fields and the reschedule link carried by patch.
func (r *mongoCheckInRepository) Update(ctx context.Context, id string, patch repository.CheckInPatch) (*domain.CheckIn, error) {
	updateFields := bson.M{"updatedAt": time.Now().UTC()}
	if patch.ClientNotes != nil {
		updateFields["clientNotes"] = *patch.ClientNotes
	}
	if patch.CoachNotes != nil {
		updateFields["coachNotes"] = *patch.CoachNotes
	}
	if patch.Feedback != nil {
		updateFields["feedback"] = *patch.Feedback
	}
	if patch.RescheduledTo != nil {
		updateFields["rescheduledTo"] = *patch.RescheduledTo
	}

	return r.findAndSet(ctx, bson.M{"_id": id}, updateFields)
}

// TransitionStatus is a compare-and-swap on status.
func (r *mongoCheckInRepository) TransitionStatus(ctx context.Context, id string, change repository.StatusChange) (*domain.CheckIn, error) {
	at := change.At.UTC()
	updateFields := bson.M{
		"status":    change.To,
		"updatedAt": at,
	}
	if change.To == domain.StatusCompleted {
		updateFields["completedAt"] = at
	}

	updated, err := r.findAndSet(ctx, bson.M{"_id": id, "status": change.From}, updateFields)
	if !errors.Is(err, repository.ErrNotFound) {
		return updated, err
	}

	// Either the id is unknown or the status moved under us.
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStatusConflict
}

func (r *mongoCheckInRepository) findAndSet(ctx context.Context, filter bson.M, fields bson.M) (*domain.CheckIn, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var checkIn domain.CheckIn
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": fields}, opts).Decode(&checkIn)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &checkIn, nil
}

// Delete hard-deletes one check-in.
func (r *mongoCheckInRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteMany deletes ids one by one so each gets its own outcome.
func (r *mongoCheckInRepository) DeleteMany(ctx context.Context, ids []string) repository.BulkDeleteResult {
	result := repository.BulkDeleteResult{Requested: len(ids), Deleted: []string{}, Failed: []repository.DeleteFailure{}}
	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			result.Failed = append(result.Failed, repository.DeleteFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

// RunAtomic runs fn in a multi-document transaction. The transaction first
// bumps the client's guard document, which serializes units for one client;
// the partial unique index serializes units that race for one slot.
// Transient conflicts are retried by the driver.
func (r *mongoCheckInRepository) RunAtomic(ctx context.Context, clientID string, fn func(ctx context.Context, tx repository.CheckInRepository) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, r)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	txnOptions := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if err := r.touchGuard(sessCtx, clientID); err != nil {
			return nil, err
		}
		return nil, fn(sessCtx, r)
	}, txnOptions)
	return err
}

func (r *mongoCheckInRepository) touchGuard(ctx context.Context, clientID string) error {
	_, err := r.guards.UpdateOne(ctx,
		bson.M{"_id": clientID},
		bson.M{
			"$inc": bson.M{"seq": 1},
			"$set": bson.M{"touchedAt": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

// EnsureCheckInIndexes creates the indexes booking relies on, including the
// partial unique index that allows one scheduled check-in per slot.
// Call this once during application startup.
func EnsureCheckInIndexes(ctx context.Context, db *mongo.Database) {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "scheduledAt", Value: 1}},
			Options: options.Index().
				SetName(scheduledSlotIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.StatusScheduled}),
		},
		{
			// Quota counting: one client's check-ins in a date window
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index(),
		},
		{
			// Availability: every scheduled check-in on a day
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}},
			Options: options.Index(),
		},
	}

	collection := db.Collection(checkInCollectionName)
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		slog.Warn("Failed to create indexes", "collection", collection.Name(), "error", err)
	}

	// Collections cannot always be created inside a transaction.
	if err := db.CreateCollection(ctx, guardCollectionName); err != nil {
		var cmdErr mongo.CommandError
		if !errors.As(err, &cmdErr) || cmdErr.Name != "NamespaceExists" {
			slog.Warn("Failed to create collection", "collection", guardCollectionName, "error", err)
		}
	}
}
