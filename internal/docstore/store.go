// Package docstore is a small document database on top of SQLite: named
// collections of JSON documents with server-assigned ids and write
// timestamps, plus live snapshot subscriptions.
package docstore

import (
	"context"
	"database/sql"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"storefront/internal/pubsub"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrClosed   = errors.New("document store closed")

	json = jsoniter.ConfigCompatibleWithStandardLibrary

	reField = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
)

// Fixed width so that lexical order in SQLite equals time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// CreatedAt is the query field backed by the server write timestamp.
const CreatedAt = "createdAt"

type Store struct {
	db  *sqlx.DB
	now func() time.Time

	mu      sync.Mutex
	last    time.Time
	brokers map[string]*pubsub.Broker
	closed  bool
}

type Option func(*Store)

// WithClock replaces time.Now as the source of write timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open prepares the documents table on db.
func Open(db *sqlx.DB, opts ...Option) (*Store, error) {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS documents(
  collection TEXT NOT NULL,
  id TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at TEXT NOT NULL,
  PRIMARY KEY(collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(collection, created_at);
`); err != nil {
		return nil, errors.Wrap(err, "docstore: create schema")
	}
	s := &Store{db: db, now: time.Now, brokers: make(map[string]*pubsub.Broker)}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Collection(name string) *Collection {
	return &Collection{store: s, name: name}
}

// Close ends every live subscription. Further writes fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, b := range s.brokers {
		b.Close()
	}
}

// stamp returns a write timestamp strictly greater than any issued before.
func (s *Store) stamp() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return time.Time{}, ErrClosed
	}
	ts := s.now().UTC()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Nanosecond)
	}
	s.last = ts
	return ts, nil
}

func (s *Store) broker(collection string) (*pubsub.Broker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	b, ok := s.brokers[collection]
	if !ok {
		b = pubsub.NewBroker()
		s.brokers[collection] = b
	}
	return b, nil
}

func (s *Store) notify(collection string) {
	if b, err := s.broker(collection); err == nil {
		b.Notify()
	}
}

// Document is a stored object with its store-assigned identity.
type Document struct {
	ID        string
	CreatedAt time.Time
	Data      []byte
}

func (d Document) Decode(v any) error {
	return errors.Wrapf(json.Unmarshal(d.Data, v), "docstore: decode %s", d.ID)
}

// Query orders a snapshot. OrderBy is CreatedAt or a top-level JSON field.
type Query struct {
	OrderBy string
	Desc    bool
}

func (q Query) orderClause() (string, error) {
	expr := "created_at"
	if q.OrderBy != "" && q.OrderBy != CreatedAt {
		if !reField.MatchString(q.OrderBy) {
			return "", errors.Errorf("docstore: invalid order field %q", q.OrderBy)
		}
		expr = "json_extract(data, '$." + q.OrderBy + "')"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return " ORDER BY " + expr + " " + dir + ", id " + dir, nil
}

type row struct {
	ID        string `db:"id"`
	Data      string `db:"data"`
	CreatedAt string `db:"created_at"`
}

func (r row) document() (Document, error) {
	ts, err := time.Parse(tsLayout, r.CreatedAt)
	if err != nil {
		return Document{}, errors.Wrapf(err, "docstore: bad timestamp on %s", r.ID)
	}
	return Document{ID: r.ID, CreatedAt: ts, Data: []byte(r.Data)}, nil
}

type Collection struct {
	store *Store
	name  string
}

func (c *Collection) Name() string { return c.name }

// Create stores v as a new document and returns its id.
func (c *Collection) Create(ctx context.Context, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "docstore: encode %s", c.name)
	}
	ts, err := c.store.stamp()
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := c.store.db.ExecContext(ctx,
		`INSERT INTO documents(collection, id, data, created_at) VALUES(?,?,?,?)`,
		c.name, id, string(data), ts.Format(tsLayout)); err != nil {
		return "", errors.Wrapf(err, "docstore: create in %s", c.name)
	}
	c.store.notify(c.name)
	return id, nil
}

// Update replaces the document's fields and re-stamps its timestamp.
func (c *Collection) Update(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "docstore: encode %s/%s", c.name, id)
	}
	ts, err := c.store.stamp()
	if err != nil {
		return err
	}
	res, err := c.store.db.ExecContext(ctx,
		`UPDATE documents SET data = ?, created_at = ? WHERE collection = ? AND id = ?`,
		string(data), ts.Format(tsLayout), c.name, id)
	if err != nil {
		return errors.Wrapf(err, "docstore: update %s/%s", c.name, id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "%s/%s", c.name, id)
	}
	c.store.notify(c.name)
	return nil
}

func (c *Collection) Delete(ctx context.Context, id string) error {
	if _, err := c.store.broker(c.name); err != nil {
		return err
	}
	res, err := c.store.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		return errors.Wrapf(err, "docstore: delete %s/%s", c.name, id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(ErrNotFound, "%s/%s", c.name, id)
	}
	c.store.notify(c.name)
	return nil
}

func (c *Collection) Get(ctx context.Context, id string) (Document, error) {
	var r row
	err := c.store.db.GetContext(ctx, &r,
		`SELECT id, data, created_at FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, errors.Wrapf(ErrNotFound, "%s/%s", c.name, id)
	}
	if err != nil {
		return Document{}, errors.Wrapf(err, "docstore: get %s/%s", c.name, id)
	}
	return r.document()
}

// Query returns the full ordered snapshot of the collection.
func (c *Collection) Query(ctx context.Context, q Query) ([]Document, error) {
	order, err := q.orderClause()
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := c.store.db.SelectContext(ctx, &rows,
		`SELECT id, data, created_at FROM documents WHERE collection = ?`+order, c.name); err != nil {
		return nil, errors.Wrapf(err, "docstore: query %s", c.name)
	}
	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		d, err := r.document()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Watch delivers the current snapshot to fn and then a fresh snapshot after
// every write to the collection, until the returned stop func is called or
// the store closes. Calls to fn are sequential. stop blocks until the
// listener has exited, so it must not be called from inside fn.
func (c *Collection) Watch(ctx context.Context, q Query, fn func([]Document, error)) (stop func(), err error) {
	if _, err := q.orderClause(); err != nil {
		return nil, err
	}
	b, err := c.store.broker(c.name)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	changes := b.Subscribe(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		emit := func() {
			docs, err := c.Query(ctx, q)
			if ctx.Err() != nil {
				return
			}
			fn(docs, err)
		}
		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				// A write during a snapshot leaves one pending signal, so a
				// burst costs one extra query rather than one per write.
				emit()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
