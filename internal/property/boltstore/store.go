// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package boltstore implements property.Store on a bbolt database file.
package boltstore

import (
	"bytes"
	"context"
	"time"

	"github.com/samber/oops"
	bbolt "go.etcd.io/bbolt"

	"github.com/DjCaptainPlus/WarpBook/internal/property"
)

// Root bucket names. Entity scopes are nested buckets under bucketEntities
// keyed by entity name.
var (
	bucketWorld    = []byte("world")
	bucketEntities = []byte("entities")
)

// Store is a property.Store persisted in a single bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path and ensures the root buckets
// exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", path).Wrap(err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketWorld, bucketEntities} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close() //nolint:errcheck // bucket creation error takes precedence
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", path).With("operation", "create buckets").Wrap(err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// Path returns the filesystem path of the database.
func (s *Store) Path() string {
	return s.db.Path()
}

// bucketFor returns the bucket holding scope, or nil if an entity scope has
// never been written.
func bucketFor(tx *bbolt.Tx, scope property.Scope) *bbolt.Bucket {
	if scope.IsWorld() {
		return tx.Bucket(bucketWorld)
	}
	return tx.Bucket(bucketEntities).Bucket([]byte(scope.EntityName()))
}

// Get implements property.Store.
func (s *Store) Get(_ context.Context, scope property.Scope, key string) (property.Value, error) {
	var value property.Value
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := bucketFor(tx, scope)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		return value.UnmarshalBinary(data)
	})
	if err != nil {
		return property.Absent, oops.Code("STORE_GET_FAILED").With("scope", scope.String()).With("key", key).Wrap(err)
	}
	return value, nil
}

// Set implements property.Store.
func (s *Store) Set(_ context.Context, scope property.Scope, key string, value property.Value) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if value.IsAbsent() {
			b := bucketFor(tx, scope)
			if b == nil {
				return nil
			}
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
			if scope.IsWorld() {
				return nil
			}
			if k, _ := b.Cursor().First(); k == nil {
				return tx.Bucket(bucketEntities).DeleteBucket([]byte(scope.EntityName()))
			}
			return nil
		}

		data, err := value.MarshalBinary()
		if err != nil {
			return err
		}
		b := bucketFor(tx, scope)
		if b == nil {
			b, err = tx.Bucket(bucketEntities).CreateBucket([]byte(scope.EntityName()))
			if err != nil {
				return err
			}
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return oops.Code("STORE_SET_FAILED").With("scope", scope.String()).With("key", key).Wrap(err)
	}
	return nil
}

// ListKeys implements property.Store. Keys enumerate in byte order.
func (s *Store) ListKeys(_ context.Context, scope property.Scope, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := bucketFor(tx, scope)
		if b == nil {
			return nil
		}
		p := []byte(prefix)
		c := b.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("STORE_LIST_FAILED").With("scope", scope.String()).With("prefix", prefix).Wrap(err)
	}
	return keys, nil
}

// Scopes implements property.ScopeLister.
func (s *Store) Scopes(_ context.Context) ([]property.Scope, error) {
	var scopes []property.Scope
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntities).ForEachBucket(func(name []byte) error {
			scopes = append(scopes, property.Entity(string(name)))
			return nil
		})
	})
	if err != nil {
		return nil, oops.Code("STORE_LIST_FAILED").With("operation", "list scopes").Wrap(err)
	}
	return scopes, nil
}
