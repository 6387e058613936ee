package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/records"
)

const mongoInsertChunk = 1000

// MongoStore keeps records in a MongoDB collection and answers pipelines
// with a single $facet aggregation.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
}

// OpenMongo connects to uri and verifies the server is reachable.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}
	db := client.Database(database)
	return &MongoStore{client: client, db: db, coll: db.Collection(collection)}, nil
}

func (s *MongoStore) Backend() string { return config.BackendMongo }

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

type facetResult struct {
	Data  []bson.M `bson:"data"`
	Total int64    `bson:"total"`
}

func (s *MongoStore) Execute(ctx context.Context, p query.Pipeline) (*Page, error) {
	cur, err := s.coll.Aggregate(ctx, renderPipeline(p))
	if err != nil {
		return nil, fmt.Errorf("aggregating records: %w", err)
	}
	defer func() { _ = cur.Close(context.Background()) }()

	var results []facetResult
	if err := cur.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decoding aggregation: %w", err)
	}

	page := &Page{Documents: []records.Document{}}
	if len(results) == 0 {
		return page, nil
	}
	page.Total = results[0].Total
	for _, m := range results[0].Data {
		page.Documents = append(page.Documents, fromBSON(m))
	}
	return page, nil
}

// renderPipeline turns p into a $facet aggregation whose output is a single
// document {data: [...], total: n}.
func renderPipeline(p query.Pipeline) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$facet", Value: bson.D{
			{Key: "data", Value: renderStages(p.Paged())},
			{Key: "total", Value: renderStages(p.Counted())},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "data", Value: 1},
			{Key: "total", Value: bson.D{{Key: "$arrayElemAt", Value: bson.A{"$total." + query.CountField, 0}}}},
		}}},
	}
}

func renderStages(stages []query.Stage) bson.A {
	out := bson.A{}
	for _, st := range stages {
		switch v := st.(type) {
		case query.Match:
			out = append(out, bson.D{{Key: "$match", Value: renderPredicate(v.Predicate)}})
		case query.Project:
			fields := bson.D{}
			for _, f := range v.Fields {
				fields = append(fields, bson.E{Key: f, Value: 1})
			}
			out = append(out, bson.D{{Key: "$project", Value: fields}})
		case query.Sort:
			dir := 1
			if v.Descending {
				dir = -1
			}
			if !sortablePath(v.Field) {
				out = append(out, bson.D{{Key: "$sort", Value: bson.D{{Key: records.IDField, Value: 1}}}})
				continue
			}
			keys := bson.D{{Key: v.Field, Value: dir}}
			if v.Field != records.IDField {
				keys = append(keys, bson.E{Key: records.IDField, Value: 1})
			}
			out = append(out, bson.D{{Key: "$sort", Value: keys}})
		case query.Skip:
			out = append(out, bson.D{{Key: "$skip", Value: v.N}})
		case query.Limit:
			out = append(out, bson.D{{Key: "$limit", Value: v.N}})
		case query.Count:
			out = append(out, bson.D{{Key: "$count", Value: v.As}})
		}
	}
	return out
}

// sortablePath reports whether MongoDB accepts field as a $sort key. Other
// names sort by insertion order, matching the SQL store.
func sortablePath(field string) bool {
	if field == "" || strings.HasPrefix(field, "$") || strings.ContainsRune(field, 0) {
		return false
	}
	for _, seg := range strings.Split(field, ".") {
		if seg == "" || strings.HasPrefix(seg, "$") {
			return false
		}
	}
	return true
}

func renderPredicate(p query.Predicate) bson.D {
	switch v := p.(type) {
	case query.AnyContains:
		pattern := regexp.QuoteMeta(v.Text)
		ors := bson.A{}
		for _, f := range v.Fields {
			ors = append(ors, bson.D{{Key: f, Value: bson.D{
				{Key: "$regex", Value: pattern},
				{Key: "$options", Value: "i"},
			}}})
		}
		return bson.D{{Key: "$or", Value: ors}}
	case query.TimeRange:
		bounds := bson.D{}
		if v.From != nil {
			bounds = append(bounds, bson.E{Key: "$gte", Value: *v.From})
		}
		if v.Before != nil {
			bounds = append(bounds, bson.E{Key: "$lt", Value: *v.Before})
		}
		return bson.D{{Key: v.Field, Value: bounds}}
	case query.IntRange:
		return bson.D{{Key: v.Field, Value: bson.D{
			{Key: "$gte", Value: v.Min},
			{Key: "$lte", Value: v.Max},
		}}}
	default:
		return bson.D{}
	}
}

func fromBSON(m bson.M) records.Document {
	doc := records.Document{}
	for k, v := range m {
		switch t := v.(type) {
		case primitive.ObjectID:
			doc[k] = t.Hex()
		case primitive.DateTime:
			doc[k] = t.Time().UTC()
		case int32:
			doc[k] = int64(t)
		case primitive.Null:
			doc[k] = nil
		default:
			doc[k] = v
		}
	}
	return doc
}

// EnsureIndexes creates the indexes that back the range filters and the
// default sort.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return ensureIndexes(ctx, s.coll)
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: records.CreatedDT, Value: -1}}},
		{Keys: bson.D{{Key: records.PowerUnits, Value: 1}}},
		{Keys: bson.D{{Key: records.USDOTNumber, Value: 1}}},
	}
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("creating indexes on %s: %w", coll.Name(), err)
	}
	return nil
}

// ReplaceAll loads recs into a staging collection and renames it over the
// live one. Readers never observe an empty or partial collection.
func (s *MongoStore) ReplaceAll(ctx context.Context, recs []records.Record) error {
	staging := s.coll.Name() + "_staging_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if err := s.db.CreateCollection(ctx, staging); err != nil {
		return fmt.Errorf("creating staging collection: %w", err)
	}
	sc := s.db.Collection(staging)

	renamed := false
	defer func() {
		if renamed {
			return
		}
		if err := sc.Drop(context.Background()); err != nil {
			logger.Warnf("failed to drop staging collection %s: %v", staging, err)
		}
	}()

	for start := 0; start < len(recs); start += mongoInsertChunk {
		end := min(start+mongoInsertChunk, len(recs))
		docs := make([]interface{}, 0, end-start)
		for _, r := range recs[start:end] {
			docs = append(docs, r)
		}
		if _, err := sc.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("inserting records %d-%d: %w", start, end-1, err)
		}
	}
	if err := ensureIndexes(ctx, sc); err != nil {
		return err
	}

	cmd := bson.D{
		{Key: "renameCollection", Value: s.db.Name() + "." + staging},
		{Key: "to", Value: s.db.Name() + "." + s.coll.Name()},
		{Key: "dropTarget", Value: true},
	}
	if err := s.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("swapping in staging collection: %w", err)
	}
	renamed = true
	logger.Infof("replaced mongodb records: %d documents", len(recs))
	return nil
}
