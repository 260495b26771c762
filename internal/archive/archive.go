package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/glamhair/patglam-agent/internal/dialog"
	"github.com/glamhair/patglam-agent/pkg/mongo"
)

const (
	briefCollection = "briefs"
	callCollection  = "calls"
)

// BriefRecord is an archived lead brief.
type BriefRecord struct {
	BriefID    string    `bson:"brief_id" json:"brief_id"`
	CallID     string    `bson:"call_id" json:"call_id"`
	From       string    `bson:"from_number,omitempty" json:"from,omitempty"`
	To         string    `bson:"to_number,omitempty" json:"to,omitempty"`
	Duration   string    `bson:"duration,omitempty" json:"duration,omitempty"`
	Text       string    `bson:"text" json:"text"`
	Degraded   bool      `bson:"degraded" json:"degraded"`
	Dispatched bool      `bson:"dispatched" json:"dispatched"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// CallRecord is the archived per-call record written alongside the brief.
type CallRecord struct {
	CallID    string         `bson:"call_id" json:"call_id"`
	From      string         `bson:"from_number,omitempty" json:"from,omitempty"`
	To        string         `bson:"to_number,omitempty" json:"to,omitempty"`
	Duration  string         `bson:"duration,omitempty" json:"duration,omitempty"`
	Profile   dialog.Profile `bson:"profile,omitempty" json:"profile,omitempty"`
	Turns     []dialog.Turn  `bson:"turns" json:"turns"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// Archive persists completed briefs and call records in MongoDB.
// A nil Archive is valid and turns every method into a no-op, so the core
// call flow works without Mongo configured.
type Archive struct {
	client *mongo.Client
}

// New creates an archive over a Mongo client. client may be nil.
func New(client *mongo.Client) *Archive {
	if client == nil {
		return nil
	}
	return &Archive{client: client}
}

// SaveBrief archives a finished brief.
func (a *Archive) SaveBrief(ctx context.Context, rec *BriefRecord) error {
	if a == nil {
		return nil
	}
	rec.CreatedAt = time.Now().UTC()
	if _, err := a.client.Collection(briefCollection).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("archive brief: %w", err)
	}
	return nil
}

// SaveCall archives the call record with its transcript.
func (a *Archive) SaveCall(ctx context.Context, rec *CallRecord) error {
	if a == nil {
		return nil
	}
	rec.CreatedAt = time.Now().UTC()
	if _, err := a.client.Collection(callCollection).InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("archive call: %w", err)
	}
	return nil
}

// BriefByCallID returns the archived brief for a call id.
func (a *Archive) BriefByCallID(ctx context.Context, callID string) (*BriefRecord, error) {
	if a == nil {
		return nil, fmt.Errorf("archive not configured")
	}
	var rec BriefRecord
	err := a.client.Collection(briefCollection).
		FindOne(ctx, bson.M{"call_id": callID}).
		Decode(&rec)
	if err == mongodrv.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive brief read: %w", err)
	}
	return &rec, nil
}

// RecentBriefs returns the most recent briefs, newest first.
func (a *Archive) RecentBriefs(ctx context.Context, limit int64) ([]BriefRecord, error) {
	if a == nil {
		return nil, fmt.Errorf("archive not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := a.client.Collection(briefCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("archive brief list: %w", err)
	}
	defer cursor.Close(ctx)

	var records []BriefRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("archive brief list: %w", err)
	}
	return records, nil
}
