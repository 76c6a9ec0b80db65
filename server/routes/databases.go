package routes

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/Yarin78/morphy-sub004/database"
)

// Databases keeps the databases the server has opened, by name.
type Databases struct {
	root      string
	cacheSize int

	mu   sync.Mutex
	open map[string]*database.Database
}

func NewDatabases(root string, cacheSize int) *Databases {
	return &Databases{root: root, cacheSize: cacheSize, open: make(map[string]*database.Database)}
}

func (d *Databases) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid database name")
	}
	return filepath.Join(d.root, name), nil
}

func (d *Databases) List() ([]string, error) {
	return database.ListDatabases(d.root)
}

// Get returns the named database, loading it on first use.
func (d *Databases) Get(name string) (*database.Database, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if db, ok := d.open[name]; ok {
		return db, nil
	}
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	db, err := database.Load(path, database.WithCacheSize(d.cacheSize))
	if err != nil {
		return nil, err
	}
	d.open[name] = db
	return db, nil
}

func (d *Databases) Create(name string) (*database.Database, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	db, err := database.New(path, database.WithCacheSize(d.cacheSize))
	if err != nil {
		return nil, err
	}
	d.open[name] = db
	return db, nil
}

// Release closes the named database if it is open, so its files can be replaced.
// It returns the database directory.
func (d *Databases) Release(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path, err := d.path(name)
	if err != nil {
		return "", err
	}
	if db, ok := d.open[name]; ok {
		delete(d.open, name)
		if err := db.Close(); err != nil {
			return "", err
		}
	}
	return path, nil
}

// CloseAll closes every open database.
func (d *Databases) CloseAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for name, db := range d.open {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(d.open, name)
	}
	return errors.Join(errs...)
}
