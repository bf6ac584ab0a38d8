// Package dup implements S8: exact duplicate detection on a caller-
// confirmed single or compound key.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package dup

import (
	"sort"
	"strings"

	"github.com/NVIDIA/dprofile/config"
	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/profile/diskstore"
)

// keySeparator joins compound-key components. NUL cannot occur in
// well-formed decoded text (spec §4.7), so it is unambiguous as a
// separator.
const keySeparator = "\x00"

// SpillAllocator mirrors profile.SpillAllocator so dup does not need to
// import the profile package just for this one method's type.
type SpillAllocator interface {
	SpillPath(column, kind string) (string, error)
}

// Detector runs one confirmed-key duplicate pass. A run may create
// several Detectors, one per confirmation (spec §3 "S8 runs once per
// confirmation; multiple confirmations are permitted").
type Detector struct {
	cfg     config.Thresholds
	keyName string
	alloc   SpillAllocator

	total, nullKeyCount int64

	memCounts map[string]int64
	spilled   *diskstore.CountStore
	budget    int64
}

func NewDetector(cfg config.Thresholds, keyName string, alloc SpillAllocator) *Detector {
	return &Detector{
		cfg: cfg, keyName: keyName, alloc: alloc,
		memCounts: make(map[string]int64),
		budget:    cfg.ColumnMemoryBudget,
	}
}

// Observe hashes one row's key-column values and tallies it. A row with
// any empty key component is excluded from the duplicate tally and
// counted toward null_key_count instead (spec §4.7).
func (d *Detector) Observe(values []string) error {
	d.total++
	for _, v := range values {
		if v == "" {
			d.nullKeyCount++
			return nil
		}
	}
	hash := strings.Join(values, keySeparator)

	if d.spilled != nil {
		return d.spilled.Increment(hash)
	}
	if _, ok := d.memCounts[hash]; !ok && int64(len(d.memCounts))*64 >= d.budget {
		if err := d.spillNow(); err != nil {
			return err
		}
		return d.spilled.Increment(hash)
	}
	d.memCounts[hash]++
	return nil
}

func (d *Detector) spillNow() error {
	path, err := d.alloc.SpillPath(d.keyName, "dupkey")
	if err != nil {
		return err
	}
	cs, err := diskstore.Open(path, d.cfg.SpillBatchSize)
	if err != nil {
		return err
	}
	for h, n := range d.memCounts {
		for i := int64(0); i < n; i++ {
			if err := cs.Increment(h); err != nil {
				return err
			}
		}
	}
	d.memCounts = nil
	d.spilled = cs
	return nil
}

// Finalize scans every observed hash exactly once to compute
// duplicate_count, duplicate_rows, and a bounded set of the most
// frequent duplicate examples (spec §4.7).
func (d *Detector) Finalize() (*core.DuplicateResult, error) {
	res := &core.DuplicateResult{
		NullKeyCount: d.nullKeyCount,
		HashMethod:   "nul-joined",
	}

	var examples []core.DuplicateExample
	tally := func(hash string, count int64) {
		if count <= 1 {
			return
		}
		res.DuplicateCount++
		res.DuplicateRows += count
		examples = append(examples, core.DuplicateExample{Hash: hash, Count: count})
	}

	if d.spilled != nil {
		if err := d.spilled.Each(tally); err != nil {
			return nil, err
		}
	} else {
		for h, n := range d.memCounts {
			tally(h, n)
		}
	}

	sort.SliceStable(examples, func(i, j int) bool {
		if examples[i].Count != examples[j].Count {
			return examples[i].Count > examples[j].Count
		}
		return examples[i].Hash < examples[j].Hash
	})
	if len(examples) > d.cfg.DuplicateExampleLimit {
		examples = examples[:d.cfg.DuplicateExampleLimit]
	}
	res.DuplicateExamples = examples
	res.HasDuplicates = res.DuplicateCount > 0
	return res, nil
}
