// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoGroupRepo backs both paused-group collections; kind selects which
// one a given call targets.
type mongoGroupRepo struct {
	triggerGroups *mongo.Collection
	jobGroups     *mongo.Collection
}

func newMongoGroupRepo(triggerGroups, jobGroups *mongo.Collection) *mongoGroupRepo {
	return &mongoGroupRepo{triggerGroups: triggerGroups, jobGroups: jobGroups}
}

func (r *mongoGroupRepo) collFor(kind model.PausedGroupKind) *mongo.Collection {
	if kind == model.PausedJobGroups {
		return r.jobGroups
	}
	return r.triggerGroups
}

// Mark is idempotent on repeated calls (spec §4.D) via upsert.
func (r *mongoGroupRepo) Mark(ctx context.Context, kind model.PausedGroupKind, group string) error {
	_, err := r.collFor(kind).UpdateOne(ctx,
		bson.M{"group": group},
		bson.M{"$setOnInsert": bson.M{"group": group}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *mongoGroupRepo) Unmark(ctx context.Context, kind model.PausedGroupKind, group string) error {
	_, err := r.collFor(kind).DeleteOne(ctx, bson.M{"group": group})
	return err
}

func (r *mongoGroupRepo) UnmarkMany(ctx context.Context, kind model.PausedGroupKind, groups []string) error {
	_, err := r.collFor(kind).DeleteMany(ctx, groupInFilterByName(groups))
	return err
}

// groupInFilterByName mirrors groupInFilter but paused-group documents key
// on "group" directly rather than the nested "key.group" used by jobs and
// triggers.
func groupInFilterByName(groups []string) bson.M {
	return bson.M{"group": bson.M{"$in": groups}}
}

func (r *mongoGroupRepo) IsPaused(ctx context.Context, kind model.PausedGroupKind, group string) (bool, error) {
	err := r.collFor(kind).FindOne(ctx, bson.M{"group": group}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *mongoGroupRepo) All(ctx context.Context, kind model.PausedGroupKind) ([]string, error) {
	cur, err := r.collFor(kind).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var pg model.PausedGroup
		if err := cur.Decode(&pg); err != nil {
			return nil, err
		}
		names = append(names, pg.Group)
	}
	return names, cur.Err()
}
