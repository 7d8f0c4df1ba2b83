package famtsv

import (
	"io"

	"github.com/grailbio/base/tsv"
)

// Writer emits aligned family records, one read per line, six
// tab-separated columns: barcode, order, mate, name, aligned sequence,
// aligned quality.  The aligned quality may contain the space
// sentinel; it is always the final column so the field boundaries stay
// unambiguous.
type Writer struct {
	w *tsv.Writer
}

// NewWriter creates a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

// Write emits one aligned read.  seq and qual are the gap-padded
// alignment columns; the remaining fields come from the input read
// unchanged.
func (w *Writer) Write(r *Read, seq, qual string) error {
	w.w.WriteString(r.Barcode)
	w.w.WriteString(r.Order)
	w.w.WriteString(r.Mate)
	w.w.WriteString(r.Name)
	w.w.WriteString(seq)
	w.w.WriteString(qual)
	return w.w.EndLine()
}

// Flush flushes buffered output.  It must be called after the last
// Write.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
