// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Component E (spec §4.E): store bootstrap. Ensures the indexes every
// other component assumes are in place, and recovers this node's own
// locks from an unclean prior shutdown — other nodes' locks are left
// alone and recovered only by expiry (spec §4.E, §5).
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// legacyGroupNameIndex is the index name an earlier schema generation used;
// dropping it is attempted on every bootstrap and failure tolerated (spec
// §4.E).
const legacyGroupNameIndex = "keyName_1_keyGroup_1"

// Bootstrap ensures required indexes exist and clears this node's own
// stale locks from a prior unclean shutdown. It should be called once per
// process after New, before the store serves any traffic.
func (s *Store) Bootstrap(ctx context.Context) error {
	if err := s.ensureIndexes(ctx); err != nil {
		return wrapStorageErr("bootstrap:ensureIndexes", err)
	}

	if err := s.locks.DeleteByInstanceID(ctx, s.cfg.InstanceID); err != nil {
		return wrapStorageErr("bootstrap:clearOwnLocks", err)
	}

	return nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	jobsColl := s.cfg.CollectionPrefix + "jobs"
	triggersColl := s.cfg.CollectionPrefix + "triggers"
	locksColl := s.cfg.CollectionPrefix + "locks"
	calendarsColl := s.cfg.CollectionPrefix + "calendars"

	if err := s.createUniqueGroupNameIndex(ctx, jobsColl); err != nil {
		return err
	}
	if err := s.createUniqueGroupNameIndex(ctx, triggersColl); err != nil {
		return err
	}
	if err := s.createUniqueGroupNameIndex(ctx, locksColl); err != nil {
		return err
	}
	if err := s.createUniqueNameIndex(ctx, calendarsColl); err != nil {
		return err
	}
	if err := s.createInstanceIDIndex(ctx, locksColl); err != nil {
		return err
	}

	s.dropLegacyIndex(ctx, jobsColl)
	s.dropLegacyIndex(ctx, triggersColl)
	s.dropLegacyIndex(ctx, locksColl)

	return nil
}

func (s *Store) createUniqueGroupNameIndex(ctx context.Context, collName string) error {
	_, err := s.db.Collection(collName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key.group", Value: 1}, {Key: "key.name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("key_group_name_unique"),
	})
	return err
}

func (s *Store) createUniqueNameIndex(ctx context.Context, collName string) error {
	_, err := s.db.Collection(collName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_unique"),
	})
	return err
}

func (s *Store) createInstanceIDIndex(ctx context.Context, collName string) error {
	_, err := s.db.Collection(collName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "instanceId", Value: 1}},
		Options: options.Index().SetName("instance_id"),
	})
	return err
}

// dropLegacyIndex tolerates failure: the index may never have existed on a
// fresh deployment, and Mongo errors on dropping a non-existent index.
func (s *Store) dropLegacyIndex(ctx context.Context, collName string) {
	_, _ = s.db.Collection(collName).Indexes().DropOne(ctx, legacyGroupNameIndex)
}
