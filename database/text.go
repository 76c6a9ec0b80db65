package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Yarin78/morphy-sub004/entity"
	"github.com/Yarin78/morphy-sub004/index"
)

// ErrInvalidText is returned when a text key cannot be parsed for its kind.
var ErrInvalidText = errors.New("invalid entity text")

// Record is an entity as the text adapters show it.
type Record struct {
	ID     int32  `json:"id"`
	Text   string `json:"text"`
	Entity any    `json:"entity"`
}

// TextIndex reads and edits one index through the text form of its keys:
//
//	players      Last, First
//	tournaments  Title | Place | yyyy.mm.dd
//	annotators   Name
//	sources      Title | yyyy.mm.dd
//	teams        Title | Number
//	tags         Name
//
// Trailing fields may be left out.
type TextIndex interface {
	Kind() Kind
	Add(text string) (Record, error)
	Get(id int32) (Record, bool, error)
	Find(text string) ([]Record, error)
	// List returns up to limit records in key order starting at from, or at the
	// first (last, when descending) record if from is empty. A limit below one
	// means no limit.
	List(from string, descending bool, limit int) ([]Record, error)
	Rename(id int32, text string) (Record, error)
	Delete(id int32) (bool, error)
	Count() (int, error)
	Validate() error
	Stats() (index.Stats, error)
}

// textForm describes how one entity kind is written as text.
type textForm[E any] struct {
	parse  func(string) (E, error)
	format func(E) string
	// rekey copies the key fields of key into e and keeps everything else.
	rekey func(e, key E) E
}

type textIndex[E any] struct {
	kind  Kind
	mu    *sync.Mutex
	store *index.Store[E]
	form  textForm[E]
}

// Index returns the text adapter for kind.
func (db *Database) Index(kind Kind) (TextIndex, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if ti, ok := db.indexes[kind]; ok {
		return ti, nil
	}

	var ti TextIndex
	var err error
	switch kind {
	case Players:
		ti, err = newTextIndex(db, kind, entity.PlayerCodec{}, &db.players, playerForm)
	case Tournaments:
		ti, err = newTextIndex(db, kind, entity.TournamentCodec{}, &db.tournaments, tournamentForm)
	case Annotators:
		ti, err = newTextIndex(db, kind, entity.AnnotatorCodec{}, &db.annotators, annotatorForm)
	case Sources:
		ti, err = newTextIndex(db, kind, entity.SourceCodec{}, &db.sources, sourceForm)
	case Teams:
		ti, err = newTextIndex(db, kind, entity.TeamCodec{}, &db.teams, teamForm)
	case Tags:
		ti, err = newTextIndex(db, kind, entity.GameTagCodec{}, &db.tags, tagForm)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	db.indexes[kind] = ti
	return ti, nil
}

// openKind opens the index of kind without knowing its entity type. Callers hold
// the lock.
func (db *Database) openKind(kind Kind) (store, error) {
	switch kind {
	case Players:
		return open[entity.Player](db, kind, entity.PlayerCodec{}, &db.players)
	case Tournaments:
		return open[entity.Tournament](db, kind, entity.TournamentCodec{}, &db.tournaments)
	case Annotators:
		return open[entity.Annotator](db, kind, entity.AnnotatorCodec{}, &db.annotators)
	case Sources:
		return open[entity.Source](db, kind, entity.SourceCodec{}, &db.sources)
	case Teams:
		return open[entity.Team](db, kind, entity.TeamCodec{}, &db.teams)
	case Tags:
		return open[entity.GameTag](db, kind, entity.GameTagCodec{}, &db.tags)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func newTextIndex[E any](db *Database, kind Kind, codec entity.Codec[E], slot **index.Store[E], form textForm[E]) (*textIndex[E], error) {
	s, err := open(db, kind, codec, slot)
	if err != nil {
		return nil, err
	}
	return &textIndex[E]{kind: kind, mu: &db.lock, store: s, form: form}, nil
}

func (t *textIndex[E]) Kind() Kind { return t.kind }

func (t *textIndex[E]) record(e E) Record {
	return Record{ID: t.store.Codec().ID(e), Text: t.form.format(e), Entity: e}
}

func (t *textIndex[E]) records(es []E) []Record {
	out := make([]Record, 0, len(es))
	for _, e := range es {
		out = append(out, t.record(e))
	}
	return out
}

func (t *textIndex[E]) Add(text string) (Record, error) {
	e, err := t.form.parse(text)
	if err != nil {
		return Record{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	id, err := t.store.Add(e)
	if err != nil {
		return Record{}, err
	}
	stored, _, err := t.store.Get(id)
	if err != nil {
		return Record{}, err
	}
	return t.record(stored), nil
}

func (t *textIndex[E]) Get(id int32) (Record, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok, err := t.store.Get(id)
	if err != nil || !ok {
		return Record{}, false, err
	}
	return t.record(e), true, nil
}

func (t *textIndex[E]) Find(text string) ([]Record, error) {
	key, err := t.form.parse(text)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	all, err := t.store.GetAll(key)
	if err != nil {
		return nil, err
	}
	return t.records(all), nil
}

func (t *textIndex[E]) List(from string, descending bool, limit int) ([]Record, error) {
	var start *E
	if from != "" {
		key, err := t.form.parse(from)
		if err != nil {
			return nil, err
		}
		start = &key
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	it := t.store.Ascending(start)
	if descending {
		it = t.store.Descending(start)
	}
	var out []Record
	for (limit < 1 || len(out) < limit) && it.Next() {
		out = append(out, t.record(it.Value()))
	}
	return out, it.Err()
}

// Rename gives the entity id the key in text. Everything but the key is kept.
func (t *textIndex[E]) Rename(id int32, text string) (Record, error) {
	key, err := t.form.parse(text)
	if err != nil {
		return Record{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var renamed E
	err = t.store.Update(context.Background(), func(tx *index.Txn[E]) error {
		old, ok, err := tx.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %d", index.ErrNotFound, t.kind, id)
		}
		renamed = t.form.rekey(old, key)
		return tx.PutByID(id, renamed)
	})
	if err != nil {
		return Record{}, err
	}
	return t.record(renamed), nil
}

func (t *textIndex[E]) Delete(id int32) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Delete(id)
}

func (t *textIndex[E]) Count() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Count()
}

func (t *textIndex[E]) Validate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.ValidateStructure()
}

func (t *textIndex[E]) Stats() (index.Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.store.Stats()
}

// fields splits text on '|' into at most n trimmed fields, padding with "".
func fields(text string, n int) ([]string, error) {
	parts := strings.Split(text, "|")
	if len(parts) > n {
		return nil, fmt.Errorf("%w: %q has more than %d fields", ErrInvalidText, text, n)
	}
	out := make([]string, n)
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	if out[0] == "" {
		return nil, fmt.Errorf("%w: %q has no name", ErrInvalidText, text)
	}
	return out, nil
}

func parseDate(s string) (entity.Date, error) {
	d, err := entity.ParseDate(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	return d, nil
}

func joinFields(fs ...string) string {
	for len(fs) > 1 && fs[len(fs)-1] == "" {
		fs = fs[:len(fs)-1]
	}
	return strings.Join(fs, " | ")
}

func dateText(d entity.Date) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

var playerForm = textForm[entity.Player]{
	parse: func(s string) (entity.Player, error) {
		last, first, _ := strings.Cut(s, ",")
		last = strings.TrimSpace(last)
		if last == "" {
			return entity.Player{}, fmt.Errorf("%w: %q has no last name", ErrInvalidText, s)
		}
		return entity.PlayerKey(last, strings.TrimSpace(first)), nil
	},
	format: entity.Player.FullName,
	rekey: func(e, key entity.Player) entity.Player {
		e.LastName, e.FirstName = key.LastName, key.FirstName
		return e
	},
}

var tournamentForm = textForm[entity.Tournament]{
	parse: func(s string) (entity.Tournament, error) {
		f, err := fields(s, 3)
		if err != nil {
			return entity.Tournament{}, err
		}
		d, err := parseDate(f[2])
		if err != nil {
			return entity.Tournament{}, err
		}
		return entity.TournamentKey(f[0], f[1], d), nil
	},
	format: func(t entity.Tournament) string {
		return joinFields(t.Title, t.Place, dateText(t.Date))
	},
	rekey: func(e, key entity.Tournament) entity.Tournament {
		e.Title, e.Place, e.Date = key.Title, key.Place, key.Date
		return e
	},
}

var annotatorForm = textForm[entity.Annotator]{
	parse: func(s string) (entity.Annotator, error) {
		f, err := fields(s, 1)
		if err != nil {
			return entity.Annotator{}, err
		}
		return entity.AnnotatorKey(f[0]), nil
	},
	format: func(a entity.Annotator) string { return a.Name },
	rekey: func(e, key entity.Annotator) entity.Annotator {
		e.Name = key.Name
		return e
	},
}

var sourceForm = textForm[entity.Source]{
	parse: func(s string) (entity.Source, error) {
		f, err := fields(s, 2)
		if err != nil {
			return entity.Source{}, err
		}
		d, err := parseDate(f[1])
		if err != nil {
			return entity.Source{}, err
		}
		return entity.SourceKey(f[0], d), nil
	},
	format: func(s entity.Source) string { return joinFields(s.Title, dateText(s.Date)) },
	rekey: func(e, key entity.Source) entity.Source {
		e.Title, e.Date = key.Title, key.Date
		return e
	},
}

var teamForm = textForm[entity.Team]{
	parse: func(s string) (entity.Team, error) {
		f, err := fields(s, 2)
		if err != nil {
			return entity.Team{}, err
		}
		var n int64
		if f[1] != "" {
			if n, err = strconv.ParseInt(f[1], 10, 32); err != nil {
				return entity.Team{}, fmt.Errorf("%w: team number %q", ErrInvalidText, f[1])
			}
		}
		return entity.TeamKey(f[0], int32(n)), nil
	},
	format: func(t entity.Team) string {
		if t.Number == 0 {
			return t.Title
		}
		return joinFields(t.Title, strconv.Itoa(int(t.Number)))
	},
	rekey: func(e, key entity.Team) entity.Team {
		e.Title, e.Number = key.Title, key.Number
		return e
	},
}

var tagForm = textForm[entity.GameTag]{
	parse: func(s string) (entity.GameTag, error) {
		f, err := fields(s, 1)
		if err != nil {
			return entity.GameTag{}, err
		}
		return entity.GameTagKey(f[0]), nil
	},
	format: func(t entity.GameTag) string { return t.Name },
	rekey: func(e, key entity.GameTag) entity.GameTag {
		e.Name = key.Name
		return e
	},
}
