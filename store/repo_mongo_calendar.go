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

type mongoCalendarRepo struct {
	coll *mongo.Collection
}

func newMongoCalendarRepo(coll *mongo.Collection) *mongoCalendarRepo {
	return &mongoCalendarRepo{coll: coll}
}

func (r *mongoCalendarRepo) Upsert(ctx context.Context, cal *model.Calendar, replace bool) (bool, error) {
	var existing model.Calendar
	err := r.coll.FindOne(ctx, bson.M{"name": cal.Name}).Decode(&existing)
	switch {
	case err == mongo.ErrNoDocuments:
		if _, err := r.coll.InsertOne(ctx, cal); err != nil {
			return false, err
		}
		return false, nil
	case err != nil:
		return false, err
	}

	if !replace {
		return true, nil
	}

	_, err = r.coll.ReplaceOne(ctx, bson.M{"name": cal.Name}, cal, options.Replace().SetUpsert(true))
	return true, err
}

func (r *mongoCalendarRepo) FindByName(ctx context.Context, name string) (*model.Calendar, bool, error) {
	var c model.Calendar
	err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

func (r *mongoCalendarRepo) DeleteByName(ctx context.Context, name string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
