package mongostore

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/juku/core"
)

// Store maps every logical collection to a mongo collection; documents are keyed by _id.
type Store struct {
	db *mongo.Database
}

var _ core.DocStore = (*Store)(nil)

// Connect opens a client and checks the server is reachable.
func Connect(ctx context.Context, conf core.MongoConfig) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongo")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "pinging mongo")
	}
	return client, nil
}

func NewStore(client *mongo.Client, database string) *Store {
	return &Store{db: client.Database(database)}
}

// collectionName flattens nested collection paths ("students/S1/makeupLessons").
func collectionName(collection string) string {
	return strings.ReplaceAll(collection, "/", ".")
}

func (s *Store) coll(collection string) *mongo.Collection {
	return s.db.Collection(collectionName(collection))
}

func toBSON(data []byte) (bson.M, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	doc := bson.M{}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		doc[k] = numbers(v)
	}
	return doc, nil
}

// numbers stores integral JSON numbers as int64 so they read back without a fraction.
func numbers(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, _ := val.Float64()
		return f
	case map[string]interface{}:
		for k, item := range val {
			val[k] = numbers(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = numbers(item)
		}
		return val
	default:
		return v
	}
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) ([]byte, error) {
	var doc bson.M
	err := s.coll(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, core.ErrDocumentNotFound
		}
		return nil, errors.Wrapf(err, "getting document %s/%s", collection, id)
	}
	delete(doc, "_id")

	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding document %s/%s", collection, id)
	}
	return data, nil
}

func (s *Store) SetDocument(ctx context.Context, collection, id string, data []byte, opts core.SetOptions) error {
	doc, err := toBSON(data)
	if err != nil {
		return errors.Wrapf(err, "setting document %s/%s", collection, id)
	}

	filter := bson.M{"_id": id}
	if opts.Merge {
		if len(doc) == 0 {
			_, err = s.coll(collection).UpdateOne(ctx, filter, bson.M{"$setOnInsert": bson.M{"_id": id}}, options.Update().SetUpsert(true))
		} else {
			_, err = s.coll(collection).UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
		}
	} else {
		_, err = s.coll(collection).ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return errors.Wrapf(err, "setting document %s/%s", collection, id)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := s.coll(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errors.Wrapf(err, "deleting document %s/%s", collection, id)
	}
	return nil
}

func (s *Store) ListDocumentIDs(ctx context.Context, collection, idPrefix string) ([]string, error) {
	filter := bson.M{}
	if idPrefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(idPrefix)}
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := s.coll(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "listing documents %s/%s*", collection, idPrefix)
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrapf(err, "listing documents %s/%s*", collection, idPrefix)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
