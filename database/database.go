package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Yarin78/morphy-sub004/entity"
	"github.com/Yarin78/morphy-sub004/index"
	"github.com/Yarin78/morphy-sub004/storage"
)

const manifestFile = "manifest.json"

var (
	ErrExists      = errors.New("database already exists")
	ErrNoDatabase  = errors.New("database not found")
	ErrUnknownKind = errors.New("unknown entity kind")
)

// Kind names one of the entity indexes of a database.
type Kind string

const (
	Players     Kind = "players"
	Tournaments Kind = "tournaments"
	Annotators  Kind = "annotators"
	Sources     Kind = "sources"
	Teams       Kind = "teams"
	Tags        Kind = "tags"
)

// Kinds lists every index a database has, in manifest order.
var Kinds = []Kind{Players, Tournaments, Annotators, Sources, Teams, Tags}

// payloadSizes are the record sizes new index files are created with.
var payloadSizes = map[Kind]int{
	Players:     entity.PlayerCodec{}.Size(),
	Tournaments: entity.TournamentCodec{}.Size(),
	Annotators:  entity.AnnotatorCodec{}.Size(),
	Sources:     entity.SourceCodec{}.Size(),
	Teams:       entity.TeamCodec{}.Size(),
	Tags:        entity.GameTagCodec{}.Size(),
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := payloadSizes[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Manifest records the database id and the file behind each index.
type Manifest struct {
	DBID    string             `json:"db_id"`
	Name    string             `json:"name"`
	Created time.Time          `json:"created"`
	Stores  map[Kind]StoreInfo `json:"stores"`
}

type StoreInfo struct {
	File        string `json:"file"`
	PayloadSize int    `json:"payload_size"`
}

// store is what the database needs from an open index, whatever its entity type.
type store interface {
	Close() error
	Flush() error
	ValidateStructure() error
	Stats() (index.Stats, error)
}

// Database is a directory holding one index file per entity kind. Indexes are
// opened on first use. The text adapters returned by Index serialize access with
// the database lock; the typed accessors do not, so callers using them must not
// share the database across goroutines.
type Database struct {
	dir          string
	manifestPath string
	manifest     Manifest
	cacheSize    int
	lock         sync.Mutex
	closed       bool

	stores  map[Kind]store
	indexes map[Kind]TextIndex

	players     *index.Store[entity.Player]
	tournaments *index.Store[entity.Tournament]
	annotators  *index.Store[entity.Annotator]
	sources     *index.Store[entity.Source]
	teams       *index.Store[entity.Team]
	tags        *index.Store[entity.GameTag]
}

type Option func(*Database)

// WithCacheSize sets the node cache size of every index file.
func WithCacheSize(n int) Option {
	return func(db *Database) { db.cacheSize = n }
}

// New creates a database in dir with an empty index for every kind.
func New(dir string, opts ...Option) (*Database, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	manifestPath := filepath.Join(dir, manifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	}

	m := Manifest{
		DBID:    uuid.NewString(),
		Name:    filepath.Base(dir),
		Created: time.Now().UTC(),
		Stores:  make(map[Kind]StoreInfo),
	}
	for _, k := range Kinds {
		info := StoreInfo{File: string(k) + ".idx", PayloadSize: payloadSizes[k]}
		f, err := storage.CreateFile(filepath.Join(dir, info.File), info.PayloadSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s index: %w", k, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		m.Stores[k] = info
	}

	db := newDatabase(dir, m, opts)
	if err := db.saveManifest(); err != nil {
		return nil, err
	}
	log.Info("created database", "dir", dir, "id", m.DBID)
	return db, nil
}

// Load opens the database in dir.
func Load(dir string, opts ...Option) (*Database, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, dir)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Stores == nil {
		m.Stores = make(map[Kind]StoreInfo)
	}
	log.Debug("loaded database", "dir", dir, "id", m.DBID)
	return newDatabase(dir, m, opts), nil
}

func newDatabase(dir string, m Manifest, opts []Option) *Database {
	db := &Database{
		dir:          dir,
		manifestPath: filepath.Join(dir, manifestFile),
		manifest:     m,
		stores:       make(map[Kind]store),
		indexes:      make(map[Kind]TextIndex),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *Database) saveManifest() error {
	data, err := json.MarshalIndent(db.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(db.manifestPath, data, 0644)
}

func (db *Database) Dir() string  { return db.dir }
func (db *Database) ID() string   { return db.manifest.DBID }
func (db *Database) Name() string { return db.manifest.Name }

func (db *Database) Manifest() Manifest { return db.manifest }

// open returns the index of kind, opening its file on first use. A kind missing
// from the manifest gets a new file. Callers hold the lock.
func open[E any](db *Database, kind Kind, codec entity.Codec[E], slot **index.Store[E]) (*index.Store[E], error) {
	if db.closed {
		return nil, storage.ErrClosed
	}
	if *slot != nil {
		return *slot, nil
	}

	info, ok := db.manifest.Stores[kind]
	var s *index.Store[E]
	var err error
	if ok {
		s, err = index.Open(filepath.Join(db.dir, info.File), codec, storage.WithCacheSize(db.cacheSize))
	} else {
		info = StoreInfo{File: string(kind) + ".idx", PayloadSize: codec.Size()}
		s, err = index.Create(filepath.Join(db.dir, info.File), codec, storage.WithCacheSize(db.cacheSize))
		if err == nil {
			db.manifest.Stores[kind] = info
			err = db.saveManifest()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", kind, err)
	}

	*slot = s
	db.stores[kind] = s
	return s, nil
}

func (db *Database) Players() (*index.Store[entity.Player], error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return open[entity.Player](db, Players, entity.PlayerCodec{}, &db.players)
}

func (db *Database) Tournaments() (*index.Store[entity.Tournament], error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return open[entity.Tournament](db, Tournaments, entity.TournamentCodec{}, &db.tournaments)
}

func (db *Database) Annotators() (*index.Store[entity.Annotator], error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return open[entity.Annotator](db, Annotators, entity.AnnotatorCodec{}, &db.annotators)
}

func (db *Database) Sources() (*index.Store[entity.Source], error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return open[entity.Source](db, Sources, entity.SourceCodec{}, &db.sources)
}

func (db *Database) Teams() (*index.Store[entity.Team], error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return open[entity.Team](db, Teams, entity.TeamCodec{}, &db.teams)
}

func (db *Database) Tags() (*index.Store[entity.GameTag], error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return open[entity.GameTag](db, Tags, entity.GameTagCodec{}, &db.tags)
}

// openAll opens every index. Callers hold the lock.
func (db *Database) openAll() error {
	for _, k := range Kinds {
		if _, err := db.openKind(k); err != nil {
			return err
		}
	}
	return nil
}

// KindStats is the size summary of one index.
type KindStats struct {
	Kind Kind `json:"kind"`
	index.Stats
}

// Stats opens every index and reports its size, in Kinds order.
func (db *Database) Stats() ([]KindStats, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.openAll(); err != nil {
		return nil, err
	}
	out := make([]KindStats, 0, len(Kinds))
	for _, k := range Kinds {
		st, err := db.stores[k].Stats()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s stats: %w", k, err)
		}
		out = append(out, KindStats{Kind: k, Stats: st})
	}
	return out, nil
}

// ValidateAll checks the structure of every index concurrently and returns the
// first failure.
func (db *Database) ValidateAll(ctx context.Context) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if err := db.openAll(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, k := range Kinds {
		s := db.stores[k]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.ValidateStructure(); err != nil {
				return fmt.Errorf("%s index: %w", k, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close flushes and closes every open index. The database cannot be used
// afterwards.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if db.closed {
		return storage.ErrClosed
	}
	db.closed = true

	var g errgroup.Group
	for k, s := range db.stores {
		g.Go(func() error {
			if err := s.Close(); err != nil {
				return fmt.Errorf("failed closing %s index: %w", k, err)
			}
			return nil
		})
	}
	err := g.Wait()
	clear(db.stores)
	clear(db.indexes)
	log.Debug("closed database", "dir", db.dir)
	return err
}

// ListDatabases returns the names of the database directories under root.
func ListDatabases(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	dbs := []string{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), manifestFile)); err == nil {
			dbs = append(dbs, e.Name())
		}
	}
	sort.Strings(dbs)
	return dbs, nil
}
