// Package mongo implements remote.Store on MongoDB.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/remote"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps every collection in one MongoDB database. Document ids are
// uuid strings held in _id and surfaced as "id".
type Store struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewStore connects to mongoURI and verifies the connection.
func NewStore(ctx context.Context, mongoURI, dbName string) (*Store, error) {
	if mongoURI == "" || dbName == "" {
		return nil, fmt.Errorf("mongo uri and database name cannot be empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, classify("Connect", "", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Warn("MongoDB not reachable yet, continuing", "error", err)
	}
	log.Info("Connected to MongoDB", "database", dbName)
	return &Store{Client: client, Database: client.Database(dbName)}, nil
}

func (s *Store) AddDocument(ctx context.Context, collection string, data remote.Document) (string, error) {
	id := remote.NewID()
	if _, err := s.Database.Collection(collection).InsertOne(ctx, toBSON(id, data)); err != nil {
		return "", classify(remote.OpAddDocument, collection, err)
	}
	return id, nil
}

func (s *Store) UpdateDocument(ctx context.Context, collection, id string, data remote.Document) error {
	res, err := s.Database.Collection(collection).UpdateByID(ctx, id, bson.M{"$set": setFields(data)})
	if err != nil {
		return classify(remote.OpUpdateDocument, collection, err)
	}
	if res.MatchedCount == 0 {
		return remote.NewError(remote.KindNotFound, remote.OpUpdateDocument, collection, fmt.Errorf("document %s not found", id))
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) (remote.Document, error) {
	raw, err := s.Database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		return nil, classify(remote.OpGetDocument, collection, err)
	}
	doc, err := fromBSON(raw)
	if err != nil {
		return nil, remote.NewError(remote.KindUnknown, remote.OpGetDocument, collection, err)
	}
	return doc, nil
}

func (s *Store) QueryDocuments(ctx context.Context, collection string, filters []remote.Filter, order *remote.Order) ([]remote.Document, error) {
	opts := options.Find()
	if order != nil {
		direction := 1
		if order.Desc {
			direction = -1
		}
		opts.SetSort(bson.D{{Key: fieldName(order.Field), Value: direction}})
	}
	cursor, err := s.Database.Collection(collection).Find(ctx, toFilter(filters), opts)
	if err != nil {
		return nil, classify(remote.OpQueryDocuments, collection, err)
	}
	defer cursor.Close(ctx)

	docs := make([]remote.Document, 0)
	for cursor.Next(ctx) {
		doc, err := fromBSON(cursor.Current)
		if err != nil {
			log.Warn("Skipping undecodable document", "collection", collection, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(remote.OpQueryDocuments, collection, err)
	}
	return docs, nil
}

// Subscribe opens a change stream on the collection and re-runs the query on
// every change. Change streams need a replica set; standalone servers report
// a failed precondition.
func (s *Store) Subscribe(ctx context.Context, collection string, filters []remote.Filter, order *remote.Order, onData func([]remote.Document), onError func(error)) (remote.Unsubscribe, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.Database.Collection(collection).Watch(streamCtx, mongo.Pipeline{})
	if err != nil {
		cancel()
		return nil, classify(remote.OpSubscribe, collection, err)
	}
	initial, err := s.QueryDocuments(streamCtx, collection, filters, order)
	if err != nil {
		stream.Close(context.Background())
		cancel()
		return nil, err
	}
	onData(initial)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			docs, err := s.QueryDocuments(streamCtx, collection, filters, order)
			if err != nil {
				if streamCtx.Err() == nil {
					onError(err)
				}
				return
			}
			onData(docs)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			onError(classify(remote.OpSubscribe, collection, err))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// BatchWrite groups the writes per collection into ordered bulk writes.
func (s *Store) BatchWrite(ctx context.Context, writes []remote.Write) error {
	if len(writes) > remote.MaxBatchSize {
		return remote.NewError(remote.KindValidation, remote.OpBatchWrite, "", fmt.Errorf("batch of %d exceeds %d writes", len(writes), remote.MaxBatchSize))
	}
	var order []string
	models := make(map[string][]mongo.WriteModel)
	for _, w := range writes {
		if _, seen := models[w.Collection]; !seen {
			order = append(order, w.Collection)
		}
		switch w.Kind {
		case remote.WriteAdd:
			models[w.Collection] = append(models[w.Collection], mongo.NewInsertOneModel().SetDocument(toBSON(idOrNew(w.ID), w.Data)))
		case remote.WriteUpdate:
			models[w.Collection] = append(models[w.Collection], mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": w.ID}).
				SetUpdate(bson.M{"$set": setFields(w.Data)}))
		default:
			return remote.NewError(remote.KindValidation, remote.OpBatchWrite, w.Collection, fmt.Errorf("unknown write kind %q", w.Kind))
		}
	}
	for _, collection := range order {
		if _, err := s.Database.Collection(collection).BulkWrite(ctx, models[collection], options.BulkWrite().SetOrdered(true)); err != nil {
			return classify(remote.OpBatchWrite, collection, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

func toBSON(id string, data remote.Document) bson.M {
	doc := setFields(data)
	doc["_id"] = id
	return doc
}

func setFields(data remote.Document) bson.M {
	doc := make(bson.M, len(data))
	for k, v := range data {
		if k == remote.FieldID || k == "_id" {
			continue
		}
		doc[k] = v
	}
	return doc
}

// fromBSON goes through relaxed extended JSON so numbers and nested values
// come back with the same shapes remote.Encode produces.
func fromBSON(raw bson.Raw) (remote.Document, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if id, ok := doc["_id"]; ok {
		doc[remote.FieldID] = id
		delete(doc, "_id")
	}
	return doc, nil
}

func idOrNew(id string) string {
	if id == "" {
		return remote.NewID()
	}
	return id
}

func fieldName(field string) string {
	if field == remote.FieldID {
		return "_id"
	}
	return field
}

func toFilter(filters []remote.Filter) bson.D {
	filter := bson.D{}
	for _, f := range filters {
		var cond any
		switch f.Op {
		case remote.OpNotEqual:
			cond = bson.M{"$ne": f.Value}
		case remote.OpIn:
			cond = bson.M{"$in": f.Value}
		default:
			cond = f.Value
		}
		filter = append(filter, bson.E{Key: fieldName(f.Field), Value: cond})
	}
	return filter
}

// Server error codes the classification cares about.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
	codeDocumentValidation   = 121
	codeChangeStreamNoRepl   = 40573
)

func classify(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	kind := remote.KindUnknown
	var serverErr mongo.ServerError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		kind = remote.KindNotFound
	case mongo.IsNetworkError(err), mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded):
		kind = remote.KindNetworkUnavailable
	case errors.As(err, &serverErr):
		switch {
		case serverErr.HasErrorCode(codeUnauthorized), serverErr.HasErrorCode(codeAuthenticationFailed):
			kind = remote.KindPermissionDenied
		case serverErr.HasErrorCode(codeDocumentValidation):
			kind = remote.KindValidation
		case serverErr.HasErrorCode(codeChangeStreamNoRepl):
			kind = remote.KindFailedPrecondition
		}
	}
	return remote.NewError(kind, op, collection, err)
}
