// Package inmemdb implements the core repositories on plain maps, for tests
// and local hacking. It speaks no SQL: the core.DBExecutor surface panics.
package inmemdb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/evaluation"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
)

type DB struct {
	sqlless

	mutex sync.RWMutex

	users       map[string]*user.User
	events      map[string]*event.Event
	evaluators  map[string]map[string]bool // event ID -> user IDs
	checklists  map[string]*event.Checklist
	questions   map[string]*event.Question
	articles    map[string]*article.Article
	versions    map[string]*article.Version
	evaluations map[string]*evaluation.Evaluation
}

var _ core.DB = (*DB)(nil)

func Open() *DB {
	return &DB{
		users:       make(map[string]*user.User),
		events:      make(map[string]*event.Event),
		evaluators:  make(map[string]map[string]bool),
		checklists:  make(map[string]*event.Checklist),
		questions:   make(map[string]*event.Question),
		articles:    make(map[string]*article.Article),
		versions:    make(map[string]*article.Version),
		evaluations: make(map[string]*evaluation.Evaluation),
	}
}

// Begin takes the write lock for the whole transaction, serializing concurrent
// transactions the way a row lock would. Repos skip their own locking when
// they are handed a transaction executor.
func (db *DB) Begin(ctx context.Context) (core.DBTransactor, error) {
	db.mutex.Lock()
	return &tx{db: db}, nil
}

// lock locks for writing unless the caller already holds a transaction lock.
func (db *DB) lock(exec []core.DBExecutor) func() {
	if inTx(exec) {
		return func() {}
	}
	db.mutex.Lock()
	return db.mutex.Unlock
}

func (db *DB) rlock(exec []core.DBExecutor) func() {
	if inTx(exec) {
		return func() {}
	}
	db.mutex.RLock()
	return db.mutex.RUnlock
}

func inTx(exec []core.DBExecutor) bool {
	return len(exec) > 0 && exec[0] != nil
}

type tx struct {
	sqlless

	db   *DB
	done bool
}

func (t *tx) Commit() error {
	return t.finish()
}

// Rollback releases the lock; writes already applied are kept. Services only
// roll back before their first write, which keeps this approximation honest.
func (t *tx) Rollback() error {
	return t.finish()
}

func (t *tx) finish() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.db.mutex.Unlock()
	return nil
}

type sqlless struct{}

func (sqlless) Exec(string, ...interface{}) (sql.Result, error) {
	panic("inmemdb: raw SQL not supported")
}
func (sqlless) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	panic("inmemdb: raw SQL not supported")
}
func (sqlless) Query(string, ...interface{}) (*sql.Rows, error) {
	panic("inmemdb: raw SQL not supported")
}
func (sqlless) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	panic("inmemdb: raw SQL not supported")
}
func (sqlless) QueryRow(string, ...interface{}) *sql.Row {
	panic("inmemdb: raw SQL not supported")
}
func (sqlless) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	panic("inmemdb: raw SQL not supported")
}
