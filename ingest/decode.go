package ingest

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/NVIDIA/dprofile/core"
	"github.com/NVIDIA/dprofile/core/errtax"
)

// ErrHeaderMissing is returned by ParseHeader on an empty file or a
// header that decodes to zero fields or all-empty names.
var ErrHeaderMissing = errors.New("ingest: header missing or empty")

// ErrJaggedRow is returned by Next for an uncorrectable arity mismatch.
type ErrJaggedRow struct {
	Row      int64
	Expected int
	Got      int
}

func (e *ErrJaggedRow) Error() string {
	return "ingest: jagged row " + itoa(e.Row) + ": expected " + itoa(int64(e.Expected)) + " fields, got " + itoa(int64(e.Got))
}

// record is one raw split of fields plus the quote-rule flag observed
// while scanning it.
type record struct {
	fields     []string
	quoted     []bool // per-field: field was delimited by the quote char
	quoteRule  bool
	sawNewline bool
}

// Row is one decoded data row: its field values and, per field, whether
// the source text was a quoted field. Quoted distinguishes a
// quoted-empty field ("") from a truly empty unquoted field, which the
// distinct counter tallies separately (spec §4.6).
type Row struct {
	Fields []string
	Quoted []bool
	Num    int64
}

// Decoder produces a lazy sequence of rows honoring spec §4.4's column
// count policy. It is single-pass: to re-scan, the caller re-opens the
// normalized byte stream (spec §9 "Lazy iteration and restartability").
type Decoder struct {
	br              *bufio.Reader
	dialect         core.Dialect
	header          core.Header
	continueOnError bool
	errs            *errtax.Aggregator
	rowNum          int64 // 1-indexed from first data row
	headerParsed    bool
}

// NewDecoder wraps r (expected to be the already UTF-8-validated,
// line-ending-normalized byte stream) with dialect and an error sink.
// continueOnError governs whether non-catastrophic row errors are
// skipped (true) or raised immediately (false), per spec §4.4.
func NewDecoder(r io.Reader, dialect core.Dialect, errs *errtax.Aggregator, continueOnError bool) *Decoder {
	return &Decoder{
		br:              bufio.NewReaderSize(r, 64*1024),
		dialect:         dialect,
		errs:            errs,
		continueOnError: continueOnError,
	}
}

// ParseHeader consumes the header row and fixes column arity N.
func (d *Decoder) ParseHeader() (core.Header, error) {
	rec, err := d.readRecord()
	if err == io.EOF {
		d.errs.Catastrophic(errtax.EHeaderMissing, "empty file")
		return core.Header{}, ErrHeaderMissing
	}
	if err != nil {
		return core.Header{}, err
	}
	h := core.Header{Names: rec.fields}
	if h.IsEmptyOrAllBlank() {
		d.errs.Catastrophic(errtax.EHeaderMissing, "header row has zero or all-empty field names")
		return core.Header{}, ErrHeaderMissing
	}
	d.header = h
	d.headerParsed = true
	return h, nil
}

// Next returns the next well-formed data row, its 1-indexed row number,
// and false when the stream is exhausted. On a catastrophic arity
// mismatch it returns a non-nil error and the pipeline must stop; on a
// recoverable (non-catastrophic) mismatch with continueOnError=true it
// merges the error code into the aggregator, skips the row and tries the
// next one.
func (d *Decoder) Next() (row Row, ok bool, err error) {
	if !d.headerParsed {
		return Row{}, false, errors.New("ingest: ParseHeader must be called before Next")
	}
	n := d.header.Arity()
	for {
		rec, rerr := d.readRecord()
		if rerr == io.EOF {
			return Row{}, false, nil
		}
		if rerr != nil {
			return Row{}, false, rerr
		}
		d.rowNum++
		rowNum := d.rowNum

		if rec.quoteRule {
			d.errs.Merge(errtax.EQuoteRule, "malformed quoting", 1)
			if !d.continueOnError {
				return Row{}, false, errors.Errorf("ingest: quote rule violation at row %d", rowNum)
			}
			continue
		}

		got := len(rec.fields)
		switch {
		case got == n:
			return Row{Fields: rec.fields, Quoted: rec.quoted, Num: rowNum}, true, nil

		case got == n+1 && rec.fields[n] == "":
			// single extra trailing empty field: tolerate trailing
			// delimiter silently.
			return Row{Fields: rec.fields[:n], Quoted: rec.quoted[:n], Num: rowNum}, true, nil

		case got == n+1 && d.dialect.Quoted:
			// The single most common recoverable defect: an unquoted
			// embedded delimiter split one field into two. Which field
			// absorbed the delimiter isn't recoverable, so the row is
			// dropped rather than reconstructed.
			d.errs.Merge(errtax.EUnquotedDelim, "row has one extra field; likely unquoted embedded delimiter", 1)
			if !d.continueOnError {
				return Row{}, false, errors.Errorf("ingest: unquoted delimiter at row %d", rowNum)
			}
			continue

		default:
			d.errs.Catastrophic(errtax.EJaggedRow, "row arity mismatch")
			return Row{}, false, &ErrJaggedRow{Row: rowNum, Expected: n, Got: got}
		}
	}
}

// readRecord scans one logical CSV record honoring the quoting grammar
// of spec §4.4 when dialect.Quoted is true; quote characters are inert
// data when Quoted is false.
func (d *Decoder) readRecord() (record, error) {
	var (
		fields      []string
		quotedFlags []bool
		field       []byte
		fieldQuoted bool
		inQuotes    bool
		quoteRule   bool
		sawAny      bool
	)
	delim := byte(d.dialect.Delimiter)
	quoteChar := d.dialect.QuoteChar

	endField := func() {
		fields = append(fields, string(field))
		quotedFlags = append(quotedFlags, fieldQuoted)
		field = field[:0]
		fieldQuoted = false
	}

	for {
		b, err := d.br.ReadByte()
		if err == io.EOF {
			if !sawAny && len(field) == 0 && len(fields) == 0 {
				return record{}, io.EOF
			}
			if inQuotes {
				quoteRule = true
			}
			endField()
			return record{fields: fields, quoted: quotedFlags, quoteRule: quoteRule}, nil
		}
		if err != nil {
			return record{}, errors.Wrap(err, "ingest: read during decode")
		}
		sawAny = true

		switch {
		case inQuotes:
			if b == quoteChar {
				next, nerr := d.br.ReadByte()
				if nerr == nil && next == quoteChar {
					field = append(field, quoteChar)
					continue
				}
				if nerr == nil {
					_ = d.br.UnreadByte()
				}
				inQuotes = false
				continue
			}
			field = append(field, b)

		case d.dialect.Quoted && b == quoteChar && len(field) == 0:
			inQuotes = true
			fieldQuoted = true

		case d.dialect.Quoted && b == quoteChar:
			quoteRule = true
			field = append(field, b)

		case b == delim:
			endField()

		case b == '\n':
			endField()
			return record{fields: fields, quoted: quotedFlags, quoteRule: quoteRule, sawNewline: true}, nil

		default:
			field = append(field, b)
		}
	}
}
