package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

// fakeCollection keys documents by metadata.identifier
type fakeCollection struct {
	docs     map[string]storedDocument
	findErr  error
	writeErr error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: map[string]storedDocument{}}
}

func (f *fakeCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	if f.findErr != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, f.findErr, nil)
	}
	id, _ := filter.(bson.M)[identifierField].(string)
	if _, ok := f.docs[id]; !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(bson.D{{Key: "_id", Value: id}}, nil, nil)
}

func (f *fakeCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	id, _ := filter.(bson.M)[identifierField].(string)
	f.docs[id] = replacement.(storedDocument)
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

func doc(id, title string) *model.Document {
	return &model.Document{
		ID:       id,
		Title:    title,
		Content:  "transcript",
		Metadata: model.DocumentMetadata{Source: model.SourcePanopto, Identifier: id, University: "uni"},
	}
}

func TestMongoStoreExactMatch(t *testing.T) {
	coll := newFakeCollection()
	s := &MongoStore{collection: coll}
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "panopto", doc("panopto-uni-10", "Lecture 10"), "panopto/panopto-uni-10.json"))

	done, err := s.IsProcessed(ctx, "panopto-uni-10")
	require.NoError(t, err)
	assert.True(t, done)

	// A prefix of a stored identifier is a different video.
	done, err = s.IsProcessed(ctx, "panopto-uni-1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMongoStoreWriteUpserts(t *testing.T) {
	coll := newFakeCollection()
	s := &MongoStore{collection: coll}
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "canvas", doc("canvas-panopto-uni-7-v1", "first"), "canvas/canvas-panopto-uni-7-v1.json"))
	require.NoError(t, s.Write(ctx, "canvas", doc("canvas-panopto-uni-7-v1", "second"), "canvas/canvas-panopto-uni-7-v1.json"))

	require.Len(t, coll.docs, 1)
	stored := coll.docs["canvas-panopto-uni-7-v1"]
	assert.Equal(t, "second", stored.Title)
	assert.Equal(t, "canvas", stored.Namespace)
	assert.Equal(t, "canvas/canvas-panopto-uni-7-v1.json", stored.Path)
}

func TestMongoStoreFailures(t *testing.T) {
	ctx := context.Background()

	coll := newFakeCollection()
	coll.findErr = errors.New("connection reset")
	s := &MongoStore{collection: coll}
	_, err := s.IsProcessed(ctx, "panopto-uni-1")
	assert.ErrorIs(t, err, model.ErrLookupFailure)

	coll.writeErr = errors.New("not primary")
	err = s.Write(ctx, "panopto", doc("panopto-uni-1", "x"), "panopto/panopto-uni-1.json")
	assert.ErrorIs(t, err, model.ErrPersistenceFailure)

	err = (&MongoStore{collection: newFakeCollection()}).Write(ctx, "panopto", &model.Document{Title: "nameless"}, "p")
	assert.ErrorIs(t, err, model.ErrPersistenceFailure)
}

type recordingSink struct {
	name string
	log  *[]string
	err  error
}

func (r *recordingSink) Write(ctx context.Context, namespace string, d *model.Document, path string) error {
	*r.log = append(*r.log, r.name+":"+path)
	return r.err
}

func TestMultiSinkOrderAndFailure(t *testing.T) {
	var calls []string
	ok := MultiSink{&recordingSink{name: "index", log: &calls}, &recordingSink{name: "objects", log: &calls}}
	require.NoError(t, ok.Write(context.Background(), "panopto", doc("a", "a"), "panopto/a.json"))
	assert.Equal(t, []string{"index:panopto/a.json", "objects:panopto/a.json"}, calls)

	calls = nil
	failing := MultiSink{&recordingSink{name: "index", log: &calls, err: errors.New("down")}, &recordingSink{name: "objects", log: &calls}}
	assert.Error(t, failing.Write(context.Background(), "panopto", doc("a", "a"), "panopto/a.json"))
	assert.Equal(t, []string{"index:panopto/a.json"}, calls)
}
