package diskstore

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

const valueIndex = "numeric_asc"

// SortedValues stores individual float64 observations under unique
// sequence keys, ordered by value via a secondary index, so exact
// quantiles can be computed over a column whose full value set no
// longer fits in memory (spec §4.6: "retains all parsed values in a
// sorted structure on disk when in-memory count exceeds a budget").
type SortedValues struct {
	db        *buntdb.DB
	batchSize int

	mu      sync.Mutex
	seq     int64
	pending map[string]string
}

func OpenSorted(path string, batchSize int) (*SortedValues, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "diskstore: open %s", path)
	}
	if err := db.CreateIndex(valueIndex, "*", func(a, b string) bool {
		va, _ := strconv.ParseFloat(a, 64)
		vb, _ := strconv.ParseFloat(b, 64)
		return va < vb
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "diskstore: create value index")
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &SortedValues{db: db, batchSize: batchSize, pending: make(map[string]string)}, nil
}

// Add appends v to the sorted set. Order of Add calls does not matter;
// the index keeps the set ordered by value regardless of insertion order.
func (s *SortedValues) Add(v float64) error {
	s.mu.Lock()
	s.seq++
	key := strconv.FormatInt(s.seq, 10)
	s.pending[key] = strconv.FormatFloat(v, 'g', -1, 64)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()
	if full {
		return s.Flush()
	}
	return nil
}

func (s *SortedValues) Flush() error {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := s.pending
	s.pending = make(map[string]string)
	s.mu.Unlock()

	return s.db.Update(func(tx *buntdb.Tx) error {
		for key, val := range batch {
			if _, _, err := tx.Set(key, val, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the exact number of stored values.
func (s *SortedValues) Len() (int64, error) {
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

// Quantile returns the value at zero-based ascending rank floor(q*(n-1))
// (q in [0,1]), with no interpolation between neighbours, scanning the
// value-ascending index up to that rank.
func (s *SortedValues) Quantile(q float64) (float64, error) {
	n, err := s.Len()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	rank := int64(q * float64(n-1))
	var result float64
	var i int64
	err = s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(valueIndex, func(_, value string) bool {
			if i == rank {
				result, _ = strconv.ParseFloat(value, 64)
				return false
			}
			i++
			return true
		})
	})
	return result, err
}

// Each streams every stored value in ascending order, for histogram
// construction at finalize time.
func (s *SortedValues) Each(fn func(v float64)) error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.db.View(func(tx *buntdb.Tx) error {
		return tx.Ascend(valueIndex, func(_, value string) bool {
			v, _ := strconv.ParseFloat(value, 64)
			fn(v)
			return true
		})
	})
}

func (s *SortedValues) Close() error {
	if err := s.Flush(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}
