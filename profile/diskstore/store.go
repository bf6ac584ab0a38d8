// Package diskstore is the on-disk spill target shared by the distinct
// counter, the top-K frequency table, and the duplicate-hash set once a
// per-column in-memory budget is exceeded.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package diskstore

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

const countIndex = "count_desc"

// CountStore is a persistent value -> count map, ordered by count
// descending via a secondary index so top-K retrieval is a bounded
// Ascend rather than a full scan. One CountStore backs one spilled
// column's distinct/frequency/duplicate-hash accounting.
type CountStore struct {
	db        *buntdb.DB
	batchSize int

	mu      sync.Mutex
	pending map[string]int64
}

// Open opens the backing file at path, creating it if absent (entries
// already in an existing file are loaded, not cleared), and registers the
// count-descending index. batchSize <= 0 falls back to the spec default
// of 1000 updates per commit.
func Open(path string, batchSize int) (*CountStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "diskstore: open %s", path)
	}
	if err := db.CreateIndex(countIndex, "*", func(a, b string) bool {
		return parseCount(a) > parseCount(b)
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "diskstore: create count index")
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &CountStore{db: db, batchSize: batchSize, pending: make(map[string]int64)}, nil
}

func parseCount(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// Increment upserts key with count+1. Increments are buffered in memory
// and applied to the store in a single transaction once batchSize
// distinct keys have accumulated, or on an explicit Flush/Close, to
// amortize fsync cost over many updates (spec default: every 1000).
func (s *CountStore) Increment(key string) error {
	s.mu.Lock()
	s.pending[key]++
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()
	if full {
		return s.Flush()
	}
	return nil
}

// Flush commits any buffered increments.
func (s *CountStore) Flush() error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.pending
	s.pending = make(map[string]int64)
	s.mu.Unlock()

	return s.db.Update(func(tx *buntdb.Tx) error {
		for key, delta := range batch {
			cur, err := tx.Get(key)
			if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
			v := parseCount(cur) + delta
			if _, _, err := tx.Set(key, strconv.FormatInt(v, 10), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get returns the current count for key (0 if absent), adding any
// still-buffered delta for that key to the stored count so the read is
// consistent without a flush.
func (s *CountStore) Get(key string) (int64, error) {
	s.mu.Lock()
	delta, buffered := s.pending[key]
	s.mu.Unlock()

	var stored int64
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return err
		}
		stored = parseCount(v)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if buffered {
		return stored + delta, nil
	}
	return stored, nil
}

// Len returns the exact number of distinct keys, after flushing pending
// increments.
func (s *CountStore) Len() (int64, error) {
	if err := s.Flush(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.View(func(tx *buntdb.Tx) error {
		var terr error
		n, terr = tx.Len()
		return terr
	})
	return int64(n), err
}

// ValueCount is one ranked key/count pair.
type ValueCount struct {
	Key   string
	Count int64
}

// TopK returns the k keys with the highest counts, descending, ties
// broken lexicographically by key (spec §5 ordering guarantee).
func (s *CountStore) TopK(k int) ([]ValueCount, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	var out []ValueCount
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(countIndex, func(key, value string) bool {
			out = append(out, ValueCount{Key: key, Count: parseCount(value)})
			return len(out) < k+tieLookahead(k)
		})
	})
	if err != nil {
		return nil, err
	}
	out = stableTopK(out, k)
	return out, nil
}

// tieLookahead over-fetches a little so ties at the K-th boundary can be
// broken lexicographically rather than by arbitrary index order.
func tieLookahead(k int) int { return k + 16 }

func stableTopK(vs []ValueCount, k int) []ValueCount {
	// group by count, sort each group lexicographically by key, then
	// take the first k overall.
	groups := make(map[int64][]string)
	order := make([]int64, 0)
	for _, v := range vs {
		if _, ok := groups[v.Count]; !ok {
			order = append(order, v.Count)
		}
		groups[v.Count] = append(groups[v.Count], v.Key)
	}
	var out []ValueCount
	for _, count := range order {
		keys := groups[count]
		sortStrings(keys)
		for _, key := range keys {
			out = append(out, ValueCount{Key: key, Count: count})
			if len(out) == k {
				return out
			}
		}
	}
	return out
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j] < ss[j-1]; j-- {
			ss[j], ss[j-1] = ss[j-1], ss[j]
		}
	}
}

// Each streams every stored key/count pair, for full-scan consumers
// like duplicate detection that need every hash, not just the top-K.
func (s *CountStore) Each(fn func(key string, count int64)) error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(countIndex, func(key, value string) bool {
			fn(key, parseCount(value))
			return true
		})
	})
}

// Close flushes and releases the backing file.
func (s *CountStore) Close() error {
	if err := s.Flush(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}
