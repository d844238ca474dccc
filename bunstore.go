package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// snapshotRecord mirrors the single-row session_snapshot table. The payload
// column carries the JSON serialized Snapshot so the schema never chases the
// model.
type snapshotRecord struct {
	bun.BaseModel `bun:"table:session_snapshot,alias:snap"`
	Key           string     `bun:"key,pk"`
	Payload       []byte     `bun:"payload,notnull"`
	SavedAt       *time.Time `bun:"saved_at,nullzero"`
}

// defaultStorageKey identifies the snapshot row when callers provide no key.
// A key per profile lets several accounts share one storage file.
const defaultStorageKey = "session:current"

// BunStore persists session snapshots in a sqlite database through bun,
// giving the session the durability browser storage gives web clients.
type BunStore struct {
	db     *bun.DB
	key    string
	logger Logger
}

var _ Store = (*BunStore)(nil)

// BunStoreOption customizes BunStore construction.
type BunStoreOption func(*BunStore)

// WithStorageKey overrides the row key used for the snapshot.
func WithStorageKey(key string) BunStoreOption {
	return func(s *BunStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithStorageKeyFromConfig reads the row key from a Config.
func WithStorageKeyFromConfig(cfg Config) BunStoreOption {
	return func(s *BunStore) {
		if cfg != nil && cfg.GetStorageKey() != "" {
			s.key = cfg.GetStorageKey()
		}
	}
}

// WithBunStoreLogger overrides the logger used for storage warnings.
func WithBunStoreLogger(logger Logger) BunStoreOption {
	return func(s *BunStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBunStore wraps an existing bun handle. The caller owns the handle's
// lifecycle.
func NewBunStore(db *bun.DB, opts ...BunStoreOption) (*BunStore, error) {
	s := &BunStore{
		db:     db,
		key:    defaultStorageKey,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if err := s.ensureTable(); err != nil {
		return nil, wrapStorageFailure("migrate", err)
	}

	return s, nil
}

// OpenBunStore opens (or creates) a sqlite-backed store at dsn, e.g.
// "file:session.db" or "file::memory:?cache=shared".
func OpenBunStore(dsn string, opts ...BunStoreOption) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, wrapStorageFailure("open", err)
	}

	return NewBunStore(bun.NewDB(sqldb, sqlitedialect.New()), opts...)
}

func (s *BunStore) ensureTable() error {
	_, err := s.db.NewCreateTable().
		Model((*snapshotRecord)(nil)).
		IfNotExists().
		Exec(context.Background())
	return err
}

// Load reads the stored snapshot. A missing row yields (nil, nil); an
// undecodable payload yields ErrStorageCorrupt so the caller can fail safe
// to logged out.
func (s *BunStore) Load() (*Snapshot, error) {
	record := &snapshotRecord{}

	err := s.db.NewSelect().
		Model(record).
		Where("key = ?", s.key).
		Limit(1).
		Scan(context.Background())

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapStorageFailure("load", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(record.Payload, snap); err != nil {
		s.logger.Warn("dropping undecodable session snapshot", "key", s.key, "error", err)
		clone := ErrStorageCorrupt.Clone()
		if clone == nil {
			return nil, ErrStorageCorrupt
		}
		return nil, clone.WithMetadata(map[string]any{"key": s.key})
	}

	return snap, nil
}

// Save upserts the snapshot row.
func (s *BunStore) Save(snap *Snapshot) error {
	if snap == nil {
		return s.Clear()
	}

	now := time.Now()
	if snap.SavedAt == nil {
		snap.SavedAt = &now
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return wrapStorageFailure("encode", err)
	}

	record := &snapshotRecord{
		Key:     s.key,
		Payload: payload,
		SavedAt: &now,
	}

	_, err = s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("saved_at = EXCLUDED.saved_at").
		Exec(context.Background())

	if err != nil {
		return wrapStorageFailure("save", err)
	}

	return nil
}

// Clear removes the snapshot row. Clearing an empty store is a no-op.
func (s *BunStore) Clear() error {
	_, err := s.db.NewDelete().
		Model((*snapshotRecord)(nil)).
		Where("key = ?", s.key).
		Exec(context.Background())

	if err != nil {
		return wrapStorageFailure("clear", err)
	}

	return nil
}
