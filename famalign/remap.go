package famalign

import (
	"github.com/pkg/errors"
)

const (
	// GapChar marks an aligner-inserted gap in an aligned sequence.
	GapChar = '-'
	// QualGap is the quality sentinel emitted opposite a gap: no base,
	// no quality.
	QualGap = ' '
)

// ErrRemapInconsistency is the cause of errors produced when an
// aligned sequence does not consume exactly the original read's bases.
// It indicates a bug in the aligner or adapter and is always fatal;
// the alternative is silently corrupted quality-to-base
// correspondence.
var ErrRemapInconsistency = errors.New("quality re-mapping inconsistency")

// transferGaps walks aligned and qual in lockstep: a gap emits the
// sentinel without consuming, anything else consumes the next quality
// symbol.  The result has the same length as aligned.  Every quality
// symbol must be consumed exactly once.
func transferGaps(qual, aligned string) (string, error) {
	out := make([]byte, len(aligned))
	qi := 0
	for i := 0; i < len(aligned); i++ {
		if aligned[i] == GapChar {
			out[i] = QualGap
			continue
		}
		if qi == len(qual) {
			return "", errors.Wrapf(ErrRemapInconsistency,
				"alignment has more than %d bases", len(qual))
		}
		out[i] = qual[qi]
		qi++
	}
	if qi != len(qual) {
		return "", errors.Wrapf(ErrRemapInconsistency,
			"alignment consumed %d of %d bases", qi, len(qual))
	}
	return string(out), nil
}
