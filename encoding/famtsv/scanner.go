// Package famtsv contains code for reading and writing the tabular
// read-family format used by the duplex pipeline.  Reads arrive
// pre-grouped: all lines sharing a (barcode, order) pair are adjacent,
// as produced by the upstream family maker.
//
// Two line layouts are accepted, distinguished by column count:
//
//	barcode  order  mate  name  seq  qual                       (per read)
//	barcode  order  name1  seq1  qual1  name2  seq2  qual2      (per pair)
//
// A per-pair line is split into a mate-1 and a mate-2 read.
package famtsv

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedRecord is the cause of all scan errors produced by input
// rows with a bad column count, a bad order or mate token, or
// mismatched sequence/quality lengths.
var ErrMalformedRecord = errors.New("malformed family record")

// A Read is one duplex-tagged read.
type Read struct {
	// Barcode is the canonical duplex barcode, both tags concatenated.
	Barcode string
	// Order is the tag order, "ab" or "ba".
	Order string
	// Mate is "1" or "2".
	Mate string
	// Name is the read name, unique within its family.
	Name string
	// Seq and Qual have equal length, one quality symbol per base.
	Seq  string
	Qual string
}

const (
	readColumns = 6
	pairColumns = 8
)

// Scanner reads family records line by line.  The Scan method fills
// the next read, returning a boolean indicating whether the scan
// succeeded.  Scanners are not threadsafe.
//
// In strict mode a malformed row stops the scan with an error whose
// cause is ErrMalformedRecord.  Otherwise malformed rows are counted
// (see Skipped) and scanning continues, matching the behavior of the
// upstream family maker's consumers.
type Scanner struct {
	b       *bufio.Scanner
	strict  bool
	err     error
	line    int
	skipped int
	pending Read
	hasPend bool
}

// NewScanner constructs a Scanner reading raw family TSV data from r.
func NewScanner(r io.Reader, strict bool) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, 16*1024*1024)
	return &Scanner{b: b, strict: strict}
}

// Scan the next read into the provided read.  Once Scan returns false,
// it never returns true again.  Upon completion the user should check
// Err to distinguish end of stream from a scan error.
func (s *Scanner) Scan(read *Read) bool {
	if s.err != nil {
		return false
	}
	if s.hasPend {
		*read = s.pending
		s.hasPend = false
		return true
	}
	for s.b.Scan() {
		s.line++
		line := strings.TrimSuffix(s.b.Text(), "\r")
		if line == "" {
			// Blank lines (e.g. a trailing newline) carry no record and
			// are not an error in either mode.
			continue
		}
		fields := strings.Split(line, "\t")
		switch len(fields) {
		case readColumns:
			r := Read{
				Barcode: fields[0],
				Order:   fields[1],
				Mate:    fields[2],
				Name:    fields[3],
				Seq:     fields[4],
				Qual:    fields[5],
			}
			if err := validate(&r); err != nil {
				if !s.skip(err) {
					return false
				}
				continue
			}
			*read = r
			return true
		case pairColumns:
			r1 := Read{
				Barcode: fields[0],
				Order:   fields[1],
				Mate:    "1",
				Name:    fields[2],
				Seq:     fields[3],
				Qual:    fields[4],
			}
			r2 := Read{
				Barcode: fields[0],
				Order:   fields[1],
				Mate:    "2",
				Name:    fields[5],
				Seq:     fields[6],
				Qual:    fields[7],
			}
			if err := validate(&r1); err != nil {
				if !s.skip(err) {
					return false
				}
				continue
			}
			if err := validate(&r2); err != nil {
				if !s.skip(err) {
					return false
				}
				continue
			}
			*read = r1
			s.pending = r2
			s.hasPend = true
			return true
		default:
			if !s.skip(errors.Wrapf(ErrMalformedRecord, "%d columns", len(fields))) {
				return false
			}
		}
	}
	s.err = s.b.Err()
	return false
}

// skip records a malformed row.  It returns false when the scanner
// should stop (strict mode).
func (s *Scanner) skip(cause error) bool {
	if s.strict {
		s.err = errors.Wrapf(cause, "line %d", s.line)
		return false
	}
	s.skipped++
	return true
}

func validate(r *Read) error {
	if r.Barcode == "" || r.Name == "" {
		return errors.Wrap(ErrMalformedRecord, "empty barcode or name")
	}
	if r.Order != "ab" && r.Order != "ba" {
		return errors.Wrapf(ErrMalformedRecord, "bad order %q", r.Order)
	}
	if r.Mate != "1" && r.Mate != "2" {
		return errors.Wrapf(ErrMalformedRecord, "bad mate %q", r.Mate)
	}
	if len(r.Seq) == 0 || len(r.Seq) != len(r.Qual) {
		return errors.Wrapf(ErrMalformedRecord, "read %s: seq length %d, qual length %d",
			r.Name, len(r.Seq), len(r.Qual))
	}
	return nil
}

// Skipped returns the number of malformed rows dropped so far.  Always
// zero in strict mode.
func (s *Scanner) Skipped() int { return s.skipped }

// Err returns the scanning error, if any.
func (s *Scanner) Err() error { return s.err }
