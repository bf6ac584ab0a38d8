package ingest

import (
	"bytes"
	"math"

	"github.com/NVIDIA/dprofile/core"
)

// DialectGuess is the S3 outcome: a delimiter and quoting guess, each
// with a confidence in [0,1].
type DialectGuess struct {
	Delimiter           core.Delimiter
	DelimiterConfidence float64
	Quoted              bool
	QuotedConfidence    float64

	// Mismatch is set when the caller supplied a delimiter that disagrees
	// with the detector (W_DELIMITER_MISMATCH, spec §4.3).
	Mismatch  bool
	Suggested core.Delimiter
}

// DetectDialect scores every candidate delimiter in core.Candidates over
// sample (the first DialectSampleSize bytes of the normalized stream by
// convention; callers slice before calling), ignoring occurrences inside
// balanced "..." runs, and picks the highest-scoring candidate.
//
// If supplied != 0, that delimiter is used regardless of what the
// detector prefers, but Mismatch/Suggested are populated when they
// disagree.
func DetectDialect(sample []byte, supplied core.Delimiter) DialectGuess {
	lines := splitLines(sample)

	type scored struct {
		delim core.Delimiter
		score float64
	}
	var scores []scored
	for _, d := range core.Candidates {
		scores = append(scores, scored{d, scoreDelimiter(lines, byte(d))})
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score {
			best = s
		}
	}
	total := 0.0
	for _, s := range scores {
		total += math.Max(s.score, 0)
	}
	conf := 0.0
	if total > 0 {
		conf = math.Max(best.score, 0) / total
	}

	guess := DialectGuess{
		Delimiter:           best.delim,
		DelimiterConfidence: conf,
	}
	if supplied != 0 && supplied != best.delim {
		guess.Mismatch = true
		guess.Suggested = best.delim
		guess.Delimiter = supplied
		guess.DelimiterConfidence = conf
	}

	guess.Quoted, guess.QuotedConfidence = detectQuoting(sample, byte(guess.Delimiter))
	return guess
}

func splitLines(sample []byte) [][]byte {
	normalized := Normalize(sample)
	if len(normalized) == 0 {
		return nil
	}
	return bytes.Split(normalized, []byte{'\n'})
}

// scoreDelimiter combines mean count per line, consistency
// (1 - variance/mean^2), and a zero-lines penalty.
func scoreDelimiter(lines [][]byte, delim byte) float64 {
	if len(lines) == 0 {
		return 0
	}
	counts := make([]float64, 0, len(lines))
	zeroLines := 0
	for _, line := range lines {
		c := float64(countOutsideQuotes(line, delim))
		counts = append(counts, c)
		if c == 0 {
			zeroLines++
		}
	}
	n := float64(len(counts))
	mean := sum(counts) / n
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, c := range counts {
		d := c - mean
		variance += d * d
	}
	variance /= n
	consistency := 1 - variance/(mean*mean)
	zeroPenalty := 1 - float64(zeroLines)/n
	return mean * consistency * zeroPenalty
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// countOutsideQuotes counts occurrences of b in line, ignoring any run
// balanced between unescaped double quotes.
func countOutsideQuotes(line []byte, b byte) int {
	count := 0
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				i++ // escaped quote, stays inside
				continue
			}
			inQuotes = !inQuotes
		case c == b && !inQuotes:
			count++
		}
	}
	return count
}

// detectQuoting is strongest when `"` appears and contains one of: the
// chosen delimiter, a newline, or a doubled-quote escape. Absence of `"`
// anywhere yields unquoted with high confidence.
func detectQuoting(sample []byte, delim byte) (bool, float64) {
	if !bytes.ContainsRune(sample, '"') {
		return false, 0.95
	}
	signals := 0
	total := 0
	inQuotes := false
	for i := 0; i < len(sample); i++ {
		c := sample[i]
		if c != '"' {
			if inQuotes && (c == delim || c == '\n') {
				signals++
			}
			continue
		}
		total++
		if i+1 < len(sample) && sample[i+1] == '"' {
			signals++
			i++
			continue
		}
		inQuotes = !inQuotes
	}
	if total == 0 {
		return false, 0.5
	}
	conf := math.Min(0.5+float64(signals)*0.1, 0.99)
	return true, conf
}
