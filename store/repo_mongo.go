// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"errors"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// duplicateKeyErr lets a non-Mongo JobRepo/TriggerRepo/LockRepo
// implementation (store/fakes_test.go's map-backed fakes) signal a
// uniqueness conflict without depending on the mongo driver's own error
// type.
type duplicateKeyErr interface{ isDuplicateKey() bool }

// isDuplicateKeyErr reports whether err is a uniqueness-index violation,
// the sole conflict signal the acquisition and CRUD protocols react to
// (spec §4.H, §7 AlreadyExists).
func isDuplicateKeyErr(err error) bool {
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var d duplicateKeyErr
	if errors.As(err, &d) {
		return d.isDuplicateKey()
	}
	return false
}

// groupFilter translates a model.GroupMatcher into a Mongo filter fragment
// on the "key.group" field (component C, implemented here to stay close to
// the driver types the mongo repos already use; store/query.go hosts the
// storage-agnostic documentation of the same contract).
func groupFilter(matcher model.GroupMatcher) bson.M {
	switch matcher.Mode {
	case model.MatchEquals:
		return bson.M{"key.group": matcher.Value}
	case model.MatchStartsWith:
		return bson.M{"key.group": bson.M{"$regex": "^" + regexQuote(matcher.Value)}}
	case model.MatchEndsWith:
		return bson.M{"key.group": bson.M{"$regex": regexQuote(matcher.Value) + "$"}}
	case model.MatchContains:
		return bson.M{"key.group": bson.M{"$regex": regexQuote(matcher.Value)}}
	default: // model.MatchAnything
		return bson.M{}
	}
}

type mongoJobRepo struct {
	coll *mongo.Collection
}

func newMongoJobRepo(coll *mongo.Collection) *mongoJobRepo { return &mongoJobRepo{coll: coll} }

func (r *mongoJobRepo) Insert(ctx context.Context, doc bson.M) error {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

func (r *mongoJobRepo) FindByKey(ctx context.Context, key model.Key) (bson.M, bool, error) {
	var doc bson.M
	err := r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (r *mongoJobRepo) FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, bool, error) {
	var doc bson.M
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (r *mongoJobRepo) ReplaceByKey(ctx context.Context, key model.Key, doc bson.M) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"key": key}, doc)
	return err
}

func (r *mongoJobRepo) DeleteByKey(ctx context.Context, key model.Key) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoJobRepo) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *mongoJobRepo) Keys(ctx context.Context, matcher model.GroupMatcher) ([]model.Key, error) {
	cur, err := r.coll.Find(ctx, groupFilter(matcher), options.Find().SetProjection(bson.M{"key": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var keys []model.Key
	for cur.Next(ctx) {
		var doc struct {
			Key model.Key `bson:"key"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.Key)
	}
	return keys, cur.Err()
}

func (r *mongoJobRepo) GroupNames(ctx context.Context) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, "key.group", bson.M{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

func (r *mongoJobRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}
