// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"time"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoTriggerRepo struct {
	coll *mongo.Collection
}

func newMongoTriggerRepo(coll *mongo.Collection) *mongoTriggerRepo {
	return &mongoTriggerRepo{coll: coll}
}

func (r *mongoTriggerRepo) Insert(ctx context.Context, doc bson.M) error {
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

func (r *mongoTriggerRepo) FindByKey(ctx context.Context, key model.Key) (bson.M, bool, error) {
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

func (r *mongoTriggerRepo) ReplaceByKey(ctx context.Context, key model.Key, doc bson.M) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"key": key}, doc)
	return err
}

func (r *mongoTriggerRepo) DeleteByKey(ctx context.Context, key model.Key) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoTriggerRepo) DeleteByJobID(ctx context.Context, jobID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"jobId": jobID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *mongoTriggerRepo) CountByJobID(ctx context.Context, jobID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"jobId": jobID})
}

func (r *mongoTriggerRepo) ForJobID(ctx context.Context, jobID primitive.ObjectID) ([]bson.M, error) {
	cur, err := r.coll.Find(ctx, bson.M{"jobId": jobID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []bson.M
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, cur.Err()
}

func (r *mongoTriggerRepo) Keys(ctx context.Context, matcher model.GroupMatcher) ([]model.Key, error) {
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

func (r *mongoTriggerRepo) GroupNames(ctx context.Context) ([]string, error) {
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

func (r *mongoTriggerRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

// mongoDueCursor adapts *mongo.Cursor to the DueCursor interface.
type mongoDueCursor struct {
	cur     *mongo.Cursor
	current bson.M
	err     error
}

func (c *mongoDueCursor) Next(ctx context.Context) bool {
	if !c.cur.Next(ctx) {
		return false
	}
	var doc bson.M
	if err := c.cur.Decode(&doc); err != nil {
		c.err = err
		return false
	}
	c.current = doc
	return true
}

func (c *mongoDueCursor) Trigger() bson.M { return c.current }

func (c *mongoDueCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoDueCursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }

func (r *mongoTriggerRepo) FindDue(ctx context.Context, notAfter time.Time) (DueCursor, error) {
	filter := bson.M{
		"state": model.StateWaiting,
		"$or": []bson.M{
			{"nextFireTime": bson.M{"$lte": notAfter}},
			{"nextFireTime": nil},
		},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "nextFireTime", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return &mongoDueCursor{cur: cur}, nil
}

func (r *mongoTriggerRepo) UpdateStateByKey(ctx context.Context, key model.Key, from, to model.TriggerState) (bool, error) {
	filter := bson.M{"key": key}
	if from != "" {
		filter["state"] = string(from)
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"state": string(to)}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}
