// Package famalign aligns families of duplex sequencing reads.  Reads
// sharing a (barcode, order) pair form a family; each family's mate-1
// and mate-2 reads are multiple-sequence-aligned as separate groups,
// quality strings are padded across aligner-inserted gaps, and every
// input read is re-emitted with its aligned sequence and quality, in
// input order.
package famalign

import (
	"github.com/NickSto/duplex/encoding/famtsv"
)

// A Family is all adjacent input reads sharing a (Barcode, Order)
// pair.  Reads keep their input order.  Families are transient: built,
// aligned, emitted, dropped.
type Family struct {
	Barcode string
	Order   string
	Reads   []famtsv.Read
}

// An AlignedRead is an input read plus its gap-padded alignment
// columns.  len(Seq) == len(Qual) == the group's alignment width.
type AlignedRead struct {
	famtsv.Read
	AlignedSeq  string
	AlignedQual string
}

// Grouper partitions a scanned read stream into families.  The input
// is pre-grouped adjacently, so a family ends whenever the barcode or
// order changes.  Grouper follows the Scan/Err convention of the
// underlying scanner.
type Grouper struct {
	s       *famtsv.Scanner
	pending famtsv.Read
	hasPend bool
	done    bool
}

// NewGrouper wraps s.
func NewGrouper(s *famtsv.Scanner) *Grouper {
	return &Grouper{s: s}
}

// Scan fills fam with the next family, returning whether one was
// read.  The Reads slice is freshly allocated on every call.
func (g *Grouper) Scan(fam *Family) bool {
	if g.done {
		return false
	}
	if !g.hasPend {
		if !g.s.Scan(&g.pending) {
			g.done = true
			return false
		}
		g.hasPend = true
	}
	fam.Barcode = g.pending.Barcode
	fam.Order = g.pending.Order
	fam.Reads = []famtsv.Read{g.pending}
	g.hasPend = false
	for g.s.Scan(&g.pending) {
		if g.pending.Barcode != fam.Barcode || g.pending.Order != fam.Order {
			g.hasPend = true
			return true
		}
		fam.Reads = append(fam.Reads, g.pending)
	}
	g.done = true
	return true
}

// Err returns the underlying scan error, if any.
func (g *Grouper) Err() error { return g.s.Err() }
