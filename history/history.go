package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/d1nch8g/packbridge/convert"
)

// Entry pairs a journal key with the report stored under it.
type Entry struct {
	Key    string          `json:"key"`
	Report *convert.Report `json:"report"`
}

// Journal persists conversion run reports in a local leveldb store. Keys
// embed the run start time, so lexical key order is chronological order.
type Journal struct {
	leveldb *leveldb.DB
	mu      sync.RWMutex
	closed  bool
}

var ErrClosed = errors.New("journal is closed")
var ErrNotFound = errors.New("run not found")

const runPrefix = "run:"

// Fixed-width nanoseconds, unlike RFC3339Nano which trims trailing zeros
// and would break lexical ordering.
const keyTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func Open(path string) (*Journal, error) {
	err := os.RemoveAll(filepath.Join(path, "LOCK"))
	if err != nil {
		return nil, err
	}

	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return &Journal{leveldb: ldb}, nil
}

// Record stores a finished report and returns the key it was filed under.
func (j *Journal) Record(report *convert.Report) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return "", ErrClosed
	}

	data, err := json.Marshal(report)
	if err != nil {
		return "", err
	}

	started := report.Started
	if started.IsZero() {
		started = time.Now()
	}

	// The uuid suffix keeps runs started in the same nanosecond apart.
	key := runPrefix + started.UTC().Format(keyTimeLayout) + ":" + uuid.NewString()[:8]

	if err := j.leveldb.Put([]byte(key), data, nil); err != nil {
		return "", err
	}

	return key, nil
}

// Get returns the report stored under key.
func (j *Journal) Get(key string) (*convert.Report, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrClosed
	}

	data, err := j.leveldb.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var report convert.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}

	return &report, nil
}

// List returns recorded runs newest first. A limit of zero or below returns
// every run.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.closed {
		return nil, ErrClosed
	}

	iter := j.leveldb.NewIterator(util.BytesPrefix([]byte(runPrefix)), nil)
	defer iter.Release()

	var entries []Entry
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if limit > 0 && len(entries) >= limit {
			break
		}

		var report convert.Report
		if err := json.Unmarshal(iter.Value(), &report); err != nil {
			continue // Skip corrupted entries
		}

		entries = append(entries, Entry{
			Key:    string(iter.Key()),
			Report: &report,
		})
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}

	j.closed = true
	return j.leveldb.Close()
}
