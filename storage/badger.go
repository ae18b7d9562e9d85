package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"seqbench/benchmark"
	"seqbench/config"
)

const badgerKeyPrefix = "exec/"

// Badger stores records in an embedded BadgerDB under
// "exec/<variant>:<position>/<run id>".
type Badger struct {
	db     *badger.DB
	logger *slog.Logger

	stopGC chan struct{}
	gcDone chan struct{}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens the database described by cfg and starts value log GC
// when cfg.GCInterval is set and the database is on disk.
func OpenBadger(cfg config.BadgerConfig, logger *slog.Logger) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	b := &Badger{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		b.stopGC = make(chan struct{})
		b.gcDone = make(chan struct{})
		go b.runGC(cfg.GCInterval)
	}
	return b, nil
}

func badgerKey(key benchmark.ConfigurationKey, id string) []byte {
	return []byte(badgerKeyPrefix + recordPath(key, id))
}

func (b *Badger) Save(ctx context.Context, rec *benchmark.ExecutionRecord) error {
	if err := ctx.Err(); err != nil {
		return &Error{Op: "save", Key: rec.Key.String(), Err: err}
	}
	value, err := encodeRecord(rec)
	if err != nil {
		return &Error{Op: "encode", Key: rec.Key.String(), Err: err}
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.Key, rec.ID), value)
	})
	if err != nil {
		return &Error{Op: "save", Key: rec.Key.String(), Err: err}
	}
	return nil
}

func (b *Badger) Find(ctx context.Context, key benchmark.ConfigurationKey) ([]benchmark.ExecutionRecord, error) {
	prefix := []byte(badgerKeyPrefix + key.String() + "/")
	out := make([]benchmark.ExecutionRecord, 0)

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				rec, err := decodeRecord(val)
				if err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Op: "find", Key: key.String(), Err: err}
	}

	sortByStart(out)
	return out, nil
}

// Close stops the GC loop and closes the database.
func (b *Badger) Close() error {
	if b.stopGC != nil {
		close(b.stopGC)
		<-b.gcDone
	}
	return b.db.Close()
}

func (b *Badger) runGC(interval time.Duration) {
	defer close(b.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing worth collecting.
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && b.logger != nil {
				b.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}
