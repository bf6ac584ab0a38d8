// Package ingest implements S1-S4: UTF-8 validation, line-ending
// detection/normalization, dialect auto-detection, and the strict CSV
// decoder.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package ingest

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// InvalidUTF8Kind classifies why a byte sequence failed validation.
type InvalidUTF8Kind string

const (
	KindBadLead          InvalidUTF8Kind = "bad_lead_byte"
	KindBadContinuation  InvalidUTF8Kind = "bad_continuation_byte"
	KindOverlong         InvalidUTF8Kind = "overlong_encoding"
	KindSurrogate        InvalidUTF8Kind = "surrogate_code_point"
	KindOutOfRange       InvalidUTF8Kind = "code_point_out_of_range"
	KindTruncated        InvalidUTF8Kind = "truncated_at_eof"
)

// ValidationResult is the S1 outcome: either Valid (with BOM flag) or,
// on the first violation, a ByteOffset and Kind.
type ValidationResult struct {
	Valid      bool
	HasBOM     bool
	ByteOffset int64
	Kind       InvalidUTF8Kind
}

// ErrInvalidUTF8 wraps a ValidationResult with kind != "" so callers can
// type-assert it back out if they need byte_offset/kind programmatically.
type ErrInvalidUTF8 struct {
	Offset int64
	Kind   InvalidUTF8Kind
}

func (e *ErrInvalidUTF8) Error() string {
	return "invalid UTF-8 at byte offset " + itoa(e.Offset) + ": " + string(e.Kind)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

const defaultChunkSize = 8 * 1024

var bom = [3]byte{0xEF, 0xBB, 0xBF}

// Validate scans r in fixed-size chunks (chunkSize, default 8 KiB),
// carrying any trailing partial multi-byte sequence across chunk
// boundaries, and returns the first violation found, if any. It never
// materializes the whole stream.
func Validate(r io.Reader, chunkSize int) (ValidationResult, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	br := bufio.NewReaderSize(r, chunkSize)

	var (
		offset  int64
		hasBOM  bool
		first   = true
		pending []byte // residual bytes of a sequence straddling a chunk boundary
	)

	buf := make([]byte, chunkSize)
	for {
		n, err := br.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if first {
				first = false
				if n >= 3 && chunk[0] == bom[0] && chunk[1] == bom[1] && chunk[2] == bom[2] {
					hasBOM = true
					chunk = chunk[3:]
					offset += 3
				}
			}
			data := append(pending, chunk...)
			consumed, res, verr := validateChunk(data, offset-int64(len(pending)))
			if verr != nil {
				return ValidationResult{}, verr
			}
			if res != nil {
				return *res, nil
			}
			offset += int64(len(chunk))
			pending = append([]byte(nil), data[consumed:]...)
		}
		if err == io.EOF {
			if len(pending) > 0 {
				return ValidationResult{}, &ErrInvalidUTF8{
					Offset: offset - int64(len(pending)),
					Kind:   KindTruncated,
				}
			}
			break
		}
		if err != nil {
			return ValidationResult{}, errors.Wrap(err, "ingest: read during UTF-8 validation")
		}
	}
	return ValidationResult{Valid: true, HasBOM: hasBOM}, nil
}

// seqLen returns the expected total length of the sequence starting with
// lead, or 0 if lead is never a valid lead byte.
func seqLen(lead byte) int {
	switch {
	case lead&0x80 == 0x00:
		return 1
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 0
	}
}

// validateChunk validates every complete sequence in data, returning how
// many leading bytes were consumed (the rest is a possibly-incomplete
// tail to carry to the next chunk). baseOffset is data[0]'s absolute
// offset in the stream.
func validateChunk(data []byte, baseOffset int64) (consumed int, res *ValidationResult, err error) {
	i := 0
	for i < len(data) {
		lead := data[i]
		n := seqLen(lead)
		if n == 0 {
			return 0, nil, &ErrInvalidUTF8{Offset: baseOffset + int64(i), Kind: KindBadLead}
		}
		if i+n > len(data) {
			// Might be a valid sequence truncated by the chunk boundary;
			// validate what we have so far is at least consistent, then
			// carry it forward.
			for k := i + 1; k < len(data); k++ {
				if data[k]&0xC0 != 0x80 {
					return 0, nil, &ErrInvalidUTF8{Offset: baseOffset + int64(k), Kind: KindBadContinuation}
				}
			}
			return i, nil, nil
		}
		cp, ok := decodeSeq(data[i : i+n])
		if !ok {
			return 0, nil, &ErrInvalidUTF8{Offset: baseOffset + int64(i), Kind: KindBadContinuation}
		}
		if invalid := checkCodePoint(n, cp); invalid != "" {
			return 0, nil, &ErrInvalidUTF8{Offset: baseOffset + int64(i), Kind: InvalidUTF8Kind(invalid)}
		}
		i += n
	}
	return i, nil, nil
}

// decodeSeq validates continuation-byte shape and decodes the code point.
func decodeSeq(seq []byte) (cp rune, ok bool) {
	for _, b := range seq[1:] {
		if b&0xC0 != 0x80 {
			return 0, false
		}
	}
	switch len(seq) {
	case 1:
		cp = rune(seq[0])
	case 2:
		cp = rune(seq[0]&0x1F)<<6 | rune(seq[1]&0x3F)
	case 3:
		cp = rune(seq[0]&0x0F)<<12 | rune(seq[1]&0x3F)<<6 | rune(seq[2]&0x3F)
	case 4:
		cp = rune(seq[0]&0x07)<<18 | rune(seq[1]&0x3F)<<12 | rune(seq[2]&0x3F)<<6 | rune(seq[3]&0x3F)
	}
	return cp, true
}

// checkCodePoint enforces minimal-encoding, surrogate exclusion, and
// range limits per spec §4.1's byte-for-byte rules.
func checkCodePoint(n int, cp rune) string {
	switch n {
	case 2:
		if cp < 0x80 {
			return string(KindOverlong)
		}
	case 3:
		if cp < 0x800 {
			return string(KindOverlong)
		}
		if cp >= 0xD800 && cp <= 0xDFFF {
			return string(KindSurrogate)
		}
	case 4:
		if cp < 0x10000 || cp > 0x10FFFF {
			if cp < 0x10000 {
				return string(KindOverlong)
			}
			return string(KindOutOfRange)
		}
	}
	return ""
}
