// Package archive persists serialized pixel captures in a badger store so
// a pixel inspected once can be served again without re-rendering. Keys are
// "capture/<session>/<x>,<y>"; values are the wire-format pixel blobs.
package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no capture exists for the requested pixel.
var ErrNotFound = errors.New("archive: capture not found")

// Config controls where the archive keeps its data.
type Config struct {
	// Path is the directory for the badger files. Required unless InMemory.
	Path string
	// InMemory keeps everything in RAM; data is lost on Close.
	InMemory bool
	// Logger receives badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// Archive is a badger-backed store of pixel capture blobs.
// Safe for concurrent use.
type Archive struct {
	db *badger.DB
}

// Pixel identifies an archived capture within a session.
type Pixel struct {
	X, Y uint32
}

// Open opens or creates the archive described by cfg.
func Open(cfg Config) (*Archive, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("archive: path is required for a persistent archive")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("archive: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("archive: open badger store: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close flushes and closes the underlying store.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Put stores the serialized capture for one pixel, replacing any earlier
// blob for the same session and coordinates.
func (a *Archive) Put(session string, x, y uint32, blob []byte) error {
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(captureKey(session, x, y), blob)
	})
}

// Get returns the stored blob for one pixel, or ErrNotFound.
func (a *Archive) Get(session string, x, y uint32) ([]byte, error) {
	var blob []byte
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(captureKey(session, x, y))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// Pixels lists the archived pixels of one session in scanline order.
func (a *Archive) Pixels(session string) ([]Pixel, error) {
	prefix := []byte("capture/" + session + "/")

	var pixels []Pixel
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			var p Pixel
			if _, err := fmt.Sscanf(string(key[len(prefix):]), "%d,%d", &p.X, &p.Y); err != nil {
				continue
			}
			pixels = append(pixels, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(pixels, func(i, j int) bool {
		if pixels[i].Y != pixels[j].Y {
			return pixels[i].Y < pixels[j].Y
		}
		return pixels[i].X < pixels[j].X
	})
	return pixels, nil
}

// Sessions lists the distinct session ids with at least one archived pixel.
func (a *Archive) Sessions() ([]string, error) {
	prefix := []byte("capture/")

	seen := make(map[string]bool)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := string(it.Item().Key()[len(prefix):])
			if idx := strings.IndexByte(rest, '/'); idx > 0 {
				seen[rest[:idx]] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]string, 0, len(seen))
	for s := range seen {
		sessions = append(sessions, s)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func captureKey(session string, x, y uint32) []byte {
	return []byte(fmt.Sprintf("capture/%s/%d,%d", session, x, y))
}

// badgerLogger adapts slog to badger's Logger interface.
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
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
