package msa

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
)

// Mafft aligns read families by invoking the MAFFT binary once per
// family.  Each invocation writes the family to a temp FASTA file,
// runs "mafft --nuc --quiet", and parses the aligned FASTA from
// stdout.  Invocations share no state and may run concurrently.
type Mafft struct {
	path    string
	timeout time.Duration
}

// NewMafft locates the given binary (name or path; typically "mafft")
// on PATH and returns an invoker.  A nonzero timeout bounds each
// alignment run; zero means no bound.
func NewMafft(binary string, timeout time.Duration) (*Mafft, error) {
	path, err := lookpath.Look(envvar.SliceToMap(os.Environ()), binary)
	if err != nil {
		return nil, errors.Wrapf(err, "required command %q not found", binary)
	}
	return &Mafft{path: path, timeout: timeout}, nil
}

// Align implements Aligner.  A single-sequence family is its own
// alignment; MAFFT is not invoked for it (it rejects singleton input).
func (m *Mafft) Align(ctx context.Context, seqs []string) ([]string, error) {
	if len(seqs) == 0 {
		return nil, errors.Wrap(ErrAlignmentFailure, "empty family")
	}
	if len(seqs) == 1 {
		return []string{seqs[0]}, nil
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	in, err := ioutil.TempFile("", "align.msa.")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp family file")
	}
	defer os.Remove(in.Name()) // nolint: errcheck
	if err := encodeFASTA(in, seqs); err != nil {
		in.Close() // nolint: errcheck
		return nil, errors.Wrap(err, "writing temp family file")
	}
	if err := in.Close(); err != nil {
		return nil, err
	}
	// MAFFT chatters on stderr even on success; only stdout is parsed.
	cmd := exec.CommandContext(ctx, m.path, "--nuc", "--quiet", in.Name())
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrapf(ErrAlignmentFailure, "mafft: %v", ctxErr)
		}
		return nil, errors.Wrapf(ErrAlignmentFailure, "mafft: %v", err)
	}
	return decodeFASTA(out, len(seqs))
}
