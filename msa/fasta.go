package msa

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Read names are not passed to the aligner.  Each sequence is keyed by
// a synthetic per-index identifier ("r0", "r1", ...) so that the
// aligner's output can be matched back to input positions without
// worrying about whitespace or duplicate names in real read names.

func seqID(i int) string {
	return "r" + strconv.Itoa(i)
}

// encodeFASTA writes seqs as FASTA records keyed by synthetic IDs.
func encodeFASTA(w io.Writer, seqs []string) error {
	bw := bufio.NewWriter(w)
	for i, seq := range seqs {
		if _, err := bw.WriteString(">" + seqID(i) + "\n"); err != nil {
			return err
		}
		if _, err := bw.WriteString(seq + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// decodeFASTA parses aligner FASTA output and returns the aligned
// sequences by input position.  Sequences may span multiple lines and
// are uppercased (MAFFT emits lowercase).  The record count and every
// synthetic ID must match the encoded input; any discrepancy is an
// ErrOutputMismatch.
func decodeFASTA(data []byte, want int) ([]string, error) {
	var (
		names []string
		seqs  []string
		seq   strings.Builder
		name  string
		open  bool
	)
	flush := func() {
		if open {
			names = append(names, name)
			seqs = append(seqs, strings.ToUpper(seq.String()))
			seq.Reset()
		}
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(nil, 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, ">") {
			flush()
			name = strings.TrimPrefix(line, ">")
			open = true
			continue
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading aligner output")
	}
	flush()
	if len(seqs) != want {
		return nil, errors.Wrapf(ErrOutputMismatch, "%d sequences in, %d out", want, len(seqs))
	}
	for i, got := range names {
		if got != seqID(i) {
			return nil, errors.Wrapf(ErrOutputMismatch, "record %d: got id %q, want %q", i, got, seqID(i))
		}
	}
	for i := 1; i < len(seqs); i++ {
		if len(seqs[i]) != len(seqs[0]) {
			return nil, errors.Wrapf(ErrOutputMismatch, "ragged alignment: len(%s)=%d, len(%s)=%d",
				seqID(0), len(seqs[0]), seqID(i), len(seqs[i]))
		}
	}
	return seqs, nil
}
