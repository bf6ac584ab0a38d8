package profile

import (
	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/profile/diskstore"
)

// DistinctCounter maintains the exact count of distinct values for one
// column (spec §4.6, §3 DistinctCountResult), separating a truly empty
// unquoted field (null_count) from a quoted-empty field "" (empty_count)
// — neither counts toward distincts.
type DistinctCounter struct {
	cfg    config.Thresholds
	column string
	alloc  SpillAllocator

	total, nullCount, emptyCount int64

	memCounts map[string]int64
	spilled   *diskstore.CountStore
	budget    int64
}

func NewDistinctCounter(cfg config.Thresholds, column string, alloc SpillAllocator) *DistinctCounter {
	return &DistinctCounter{
		cfg: cfg, column: column, alloc: alloc,
		memCounts: make(map[string]int64),
		budget:    cfg.ColumnMemoryBudget,
	}
}

// Observe records one field value. quoted indicates whether the source
// text was delimited by the quote character.
func (c *DistinctCounter) Observe(value string, quoted bool) error {
	c.total++
	if value == "" {
		if quoted {
			c.emptyCount++
		} else {
			c.nullCount++
		}
		return nil
	}

	if c.spilled != nil {
		return c.spilled.Increment(value)
	}
	if _, ok := c.memCounts[value]; !ok && int64(len(c.memCounts))*avgKeyCostBytes >= c.budget {
		if err := c.spillNow(); err != nil {
			return err
		}
		return c.spilled.Increment(value)
	}
	c.memCounts[value]++
	return nil
}

func (c *DistinctCounter) spillNow() error {
	path, err := c.alloc.SpillPath(c.column, "distinct")
	if err != nil {
		return err
	}
	cs, err := diskstore.Open(path, c.cfg.SpillBatchSize)
	if err != nil {
		return err
	}
	for v, n := range c.memCounts {
		for i := int64(0); i < n; i++ {
			if err := cs.Increment(v); err != nil {
				return err
			}
		}
	}
	c.memCounts = nil
	c.spilled = cs
	return nil
}

func (c *DistinctCounter) Finalize() (*core.DistinctCountResult, error) {
	res := &core.DistinctCountResult{
		TotalCount: c.total,
		NullCount:  c.nullCount,
		EmptyCount: c.emptyCount,
		IsExact:    true,
	}
	nonNull := c.total - c.nullCount - c.emptyCount

	if c.spilled != nil {
		distinct, err := c.spilled.Len()
		if err != nil {
			return nil, err
		}
		res.DistinctCount = distinct
		res.StorageMethod = "disk"
		top, err := c.spilled.TopK(c.cfg.TopK)
		if err != nil {
			return nil, err
		}
		for _, v := range top {
			res.Frequencies = append(res.Frequencies, core.ValueCount{Value: v.Key, Count: v.Count})
		}
	} else {
		res.DistinctCount = int64(len(c.memCounts))
		res.StorageMethod = "memory"
		res.Frequencies = topKFromMemory(c.memCounts, c.cfg.TopK)
	}

	if nonNull > 0 {
		res.CardinalityRatio = float64(res.DistinctCount) / float64(nonNull)
	}
	return res, nil
}
