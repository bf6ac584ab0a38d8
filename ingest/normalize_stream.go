package ingest

import (
	"io"

	"golang.org/x/text/transform"
)

// crlfNormalizer is a transform.Transformer rewriting CRLF and lone CR to
// LF, streaming, so a full file never needs to be buffered just to fix
// its line endings (spec §4.2, §5 "no stage may retain the entire input
// in memory").
type crlfNormalizer struct{ transform.NopResetter }

func (crlfNormalizer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		b := src[nSrc]
		if b != '\r' {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = b
			nDst++
			nSrc++
			continue
		}
		// b == '\r': need to see the following byte to know whether this
		// is CRLF or a lone CR, unless we're at the very end of input.
		if nSrc+1 >= len(src) {
			if !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = '\n'
			nDst++
			nSrc++
			continue
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = '\n'
		nDst++
		if src[nSrc+1] == '\n' {
			nSrc += 2
		} else {
			nSrc++
		}
	}
	return nDst, nSrc, nil
}

// NormalizingReader wraps r so every CRLF/CR sequence reads back as a
// single LF, without ever materializing the whole stream.
func NormalizingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, crlfNormalizer{})
}
