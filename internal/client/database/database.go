// Package database is the client's local record store: server identities
// and per-server sessions kept in an embedded badger database.
package database

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/logger"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert-only write finds an existing
	// record or when badger aborts a transaction on a concurrent write.
	ErrConflict = errors.New("record conflict")
)

// DB wraps a badgerhold store.
type DB struct {
	store *badgerhold.Store
	log   *zap.Logger
}

// Open opens (or creates) the database in dir. With inMemory set dir is
// ignored and nothing touches the disk.
func Open(dir string, inMemory bool, log *zap.Logger) (*DB, error) {
	log = logger.OrNop(log)

	options := badgerhold.DefaultOptions
	if inMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		options.Dir = dir
		options.ValueDir = dir
	}
	options.Logger = badgerLogger{log.Sugar()}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	log.Debug("database opened", zap.String("dir", dir), zap.Bool("in_memory", inMemory))
	return &DB{store: store, log: log}, nil
}

// Close closes the underlying store.
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Write runs fn inside one read-write transaction. scope names the logical
// update in errors and logs.
func (d *DB) Write(scope string, fn func(*Tx) error) error {
	err := d.store.Badger().Update(func(txn *badger.Txn) error {
		return fn(&Tx{store: d.store, txn: txn})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrConflict) {
		err = fmt.Errorf("%w: %v", ErrConflict, err)
	}
	d.log.Debug("write transaction failed", zap.String("scope", scope), zap.Error(err))
	return fmt.Errorf("%s: %w", scope, err)
}

// Query runs a read-only find outside of any write transaction.
func (d *DB) Query(result interface{}, query *badgerhold.Query) error {
	return d.store.Find(result, query)
}

// Tx is a read-write transaction handed to Write callbacks.
type Tx struct {
	store *badgerhold.Store
	txn   *badger.Txn
}

// Upsert writes record under key. When updateIfExists is false an existing
// record makes the call fail with ErrConflict.
func (t *Tx) Upsert(key, record interface{}, updateIfExists bool) error {
	if updateIfExists {
		return t.store.TxUpsert(t.txn, key, record)
	}
	err := t.store.TxInsert(t.txn, key, record)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("%w: key %v", ErrConflict, key)
	}
	return err
}

// Get loads the record stored under key.
func (t *Tx) Get(key, result interface{}) error {
	err := t.store.TxGet(t.txn, key, result)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Query finds all records matching query. A nil query matches everything.
func (t *Tx) Query(result interface{}, query *badgerhold.Query) error {
	return t.store.TxFind(t.txn, result, query)
}

// Delete removes the record of dataType stored under key. A missing record
// is not an error.
func (t *Tx) Delete(key, dataType interface{}) error {
	err := t.store.TxDelete(t.txn, key, dataType)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil
	}
	return err
}

// DeleteMatching removes all records of dataType matching query.
func (t *Tx) DeleteMatching(dataType interface{}, query *badgerhold.Query) error {
	return t.store.TxDeleteMatching(t.txn, dataType, query)
}

// badgerLogger routes badger's internal logging into zap. Badger is chatty
// at info level so that goes to debug.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
