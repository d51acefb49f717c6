// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package store

import (
	"context"

	"github.com/seakee/jobstore/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoLockRepo struct {
	coll *mongo.Collection
}

func newMongoLockRepo(coll *mongo.Collection) *mongoLockRepo { return &mongoLockRepo{coll: coll} }

// Insert is written with the strongest durability the store offers (spec
// §5: locks use a journaled/fsynced write concern) — configured once on the
// collection handle by store.New rather than per call, matching how the
// teacher configures its GORM logger once per connection rather than per
// query.
func (r *mongoLockRepo) Insert(ctx context.Context, lock *model.Lock) error {
	_, err := r.coll.InsertOne(ctx, lock)
	return err
}

func (r *mongoLockRepo) FindByKey(ctx context.Context, key model.Key) (*model.Lock, bool, error) {
	var l model.Lock
	err := r.coll.FindOne(ctx, bson.M{"key": key}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &l, true, nil
}

func (r *mongoLockRepo) DeleteByKey(ctx context.Context, key model.Key) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"key": key})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoLockRepo) DeleteByInstanceID(ctx context.Context, instanceID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"instanceId": instanceID})
	return err
}
