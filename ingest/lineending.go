package ingest

// LineEndingStyle is one of the three styles the detector counts.
type LineEndingStyle string

const (
	CRLF LineEndingStyle = "CRLF"
	LF   LineEndingStyle = "LF"
	CR   LineEndingStyle = "CR"
)

// LineEndingReport is the S2 outcome.
type LineEndingReport struct {
	CRLFCount     int64
	LFCount       int64
	CRCount       int64
	Predominant   LineEndingStyle
	Mixed         bool // more than one style occurs with nonzero count
}

// DetectLineEndings scans data counting CRLF, LF (not part of a CRLF),
// and CR (not part of a CRLF) occurrences. When quoteAware is true,
// occurrences inside a balanced "..." run are not counted, so dialect
// inference over embedded newlines stays accurate.
func DetectLineEndings(data []byte, quoteAware bool) LineEndingReport {
	var rep LineEndingReport
	inQuotes := false
	for i := 0; i < len(data); i++ {
		b := data[i]
		if quoteAware && b == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		switch b {
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				rep.CRLFCount++
				i++
			} else {
				rep.CRCount++
			}
		case '\n':
			rep.LFCount++
		}
	}
	rep.Predominant, rep.Mixed = predominant(rep.CRLFCount, rep.LFCount, rep.CRCount)
	return rep
}

// predominant breaks ties CRLF > LF > CR, per spec §4.2.
func predominant(crlf, lf, cr int64) (LineEndingStyle, bool) {
	nonzero := 0
	if crlf > 0 {
		nonzero++
	}
	if lf > 0 {
		nonzero++
	}
	if cr > 0 {
		nonzero++
	}
	mixed := nonzero > 1

	style := CRLF
	best := crlf
	if lf > best {
		style, best = LF, lf
	}
	if cr > best {
		style = CR
	}
	return style, mixed
}

// Normalize rewrites all line endings to "\n": CRLF -> \n, then CR -> \n.
// Idempotent: Normalize(Normalize(b)) == Normalize(b), since the result
// contains no \r left for a second pass to touch.
func Normalize(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b == '\r' {
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
			out = append(out, '\n')
			continue
		}
		out = append(out, b)
	}
	return out
}
