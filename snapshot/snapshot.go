// Package snapshot keeps compressed point-in-time copies of a database directory
// inside the directory itself, under .snapshots/.
package snapshot

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

const (
	// Dir is the snapshot directory inside a database directory.
	Dir       = ".snapshots"
	indexFile = "snapshots.json"
	ext       = ".zst"
)

var (
	ErrNotFound  = errors.New("snapshot not found")
	ErrAmbiguous = errors.New("snapshot id prefix is ambiguous")
	ErrChecksum  = errors.New("snapshot file does not match its checksum")
)

type Snapshot struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Created time.Time `json:"created"`
	Files   []File    `json:"files"`
}

// File is one database file inside a snapshot.
type File struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Compressed int64  `json:"compressed"`
	SHA1       string `json:"sha1"`
}

// Size is the uncompressed size of all files.
func (s Snapshot) Size() int64 {
	var n int64
	for _, f := range s.Files {
		n += f.Size
	}
	return n
}

// Compressed is the stored size of all files.
func (s Snapshot) Compressed() int64 {
	var n int64
	for _, f := range s.Files {
		n += f.Compressed
	}
	return n
}

// Create copies every regular file of dir into a new snapshot. The database in dir
// must be closed or flushed so the files are complete.
func Create(dir, message string) (Snapshot, error) {
	names, err := databaseFiles(dir)
	if err != nil {
		return Snapshot{}, err
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return Snapshot{}, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer encoder.Close()

	snap := Snapshot{ID: uuid.NewString(), Message: message, Created: time.Now().UTC()}
	target := filepath.Join(dir, Dir, snap.ID)
	if err := os.MkdirAll(target, 0755); err != nil {
		return Snapshot{}, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			os.RemoveAll(target)
			return Snapshot{}, fmt.Errorf("failed to read %s: %w", name, err)
		}
		sum := sha1.Sum(data)
		packed := encoder.EncodeAll(data, nil)
		if err := os.WriteFile(filepath.Join(target, name+ext), packed, 0644); err != nil {
			os.RemoveAll(target)
			return Snapshot{}, fmt.Errorf("failed to write %s: %w", name, err)
		}
		snap.Files = append(snap.Files, File{
			Name:       name,
			Size:       int64(len(data)),
			Compressed: int64(len(packed)),
			SHA1:       hex.EncodeToString(sum[:]),
		})
	}

	snaps, err := readIndex(dir)
	if err != nil {
		os.RemoveAll(target)
		return Snapshot{}, err
	}
	if err := writeIndex(dir, append(snaps, snap)); err != nil {
		os.RemoveAll(target)
		return Snapshot{}, err
	}
	log.Info("created snapshot", "dir", dir, "id", snap.ID, "files", len(snap.Files))
	return snap, nil
}

// List returns the snapshots of dir, newest first.
func List(dir string) ([]Snapshot, error) {
	snaps, err := readIndex(dir)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].Created.After(snaps[j].Created) })
	return snaps, nil
}

// Find returns the snapshot whose id is id or starts with it.
func Find(dir, id string) (Snapshot, error) {
	snaps, err := readIndex(dir)
	if err != nil {
		return Snapshot{}, err
	}
	var match []Snapshot
	for _, s := range snaps {
		if s.ID == id {
			return s, nil
		}
		if id != "" && strings.HasPrefix(s.ID, id) {
			match = append(match, s)
		}
	}
	switch len(match) {
	case 0:
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return match[0], nil
	}
	return Snapshot{}, fmt.Errorf("%w: %s matches %d snapshots", ErrAmbiguous, id, len(match))
}

// Restore replaces the files of dir with the ones in snapshot id. Files the
// snapshot does not have are removed. The database in dir must be closed.
func Restore(dir, id string) (Snapshot, error) {
	snap, err := Find(dir, id)
	if err != nil {
		return Snapshot{}, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	// Decode and check everything before touching the directory.
	contents := make(map[string][]byte, len(snap.Files))
	for _, f := range snap.Files {
		packed, err := os.ReadFile(filepath.Join(dir, Dir, snap.ID, f.Name+ext))
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to read snapshot file %s: %w", f.Name, err)
		}
		data, err := decoder.DecodeAll(packed, nil)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to decompress %s: %w", f.Name, err)
		}
		sum := sha1.Sum(data)
		if hex.EncodeToString(sum[:]) != f.SHA1 {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrChecksum, f.Name)
		}
		contents[f.Name] = data
	}

	current, err := databaseFiles(dir)
	if err != nil {
		return Snapshot{}, err
	}
	for _, name := range current {
		if _, ok := contents[name]; !ok {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return Snapshot{}, err
			}
		}
	}
	for name, data := range contents {
		if err := writeFileAtomic(filepath.Join(dir, name), data); err != nil {
			return Snapshot{}, err
		}
	}
	log.Info("restored snapshot", "dir", dir, "id", snap.ID)
	return snap, nil
}

// databaseFiles lists the regular, non-hidden files of dir.
func databaseFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func readIndex(dir string) ([]Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, Dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot index: %w", err)
	}
	var snaps []Snapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot index: %w", err)
	}
	return snaps, nil
}

func writeIndex(dir string, snaps []Snapshot) error {
	data, err := json.MarshalIndent(snaps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot index: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, Dir, indexFile), data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
