package famalign_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NickSto/duplex/encoding/famtsv"
	"github.com/NickSto/duplex/famalign"
	"github.com/NickSto/duplex/msa"
)

// leftPadAligner pads every sequence with leading gaps to the longest
// sequence's length.  Not a real alignment, but deterministic and
// gap-shaped like one.
func leftPadAligner() *msa.Fake {
	return &msa.Fake{Fn: func(_ context.Context, seqs []string) ([]string, error) {
		width := 0
		for _, s := range seqs {
			if len(s) > width {
				width = len(s)
			}
		}
		out := make([]string, len(seqs))
		for i, s := range seqs {
			out[i] = strings.Repeat("-", width-len(s)) + s
		}
		return out, nil
	}}
}

func run(t *testing.T, input string, aligner msa.Aligner, opts famalign.Opts) (string, famalign.Stats, error) {
	t.Helper()
	var out bytes.Buffer
	stats, err := famalign.Run(context.Background(), strings.NewReader(input), &out, aligner, opts)
	return out.String(), stats, err
}

func TestRun(t *testing.T) {
	input := "AAAA\tab\t1\tr1\tAACGT\tIIIII\n" +
		"AAAA\tab\t1\tr2\tACGT\tJJJJ\n" +
		"CCCC\tba\t2\tr3\tTTT\tKKK\n"
	out, stats, err := run(t, input, leftPadAligner(), famalign.Opts{Parallelism: 2})
	require.NoError(t, err)
	assert.Equal(t,
		"AAAA\tab\t1\tr1\tAACGT\tIIIII\n"+
			"AAAA\tab\t1\tr2\t-ACGT\t JJJJ\n"+
			"CCCC\tba\t2\tr3\tTTT\tKKK\n",
		out)
	assert.Equal(t, 3, stats.Reads)
	assert.Equal(t, 2, stats.Families)
	assert.Equal(t, 0, stats.FailedFamilies)
}

func TestRunMatesAlignedSeparately(t *testing.T) {
	// The mate-2 read is much longer than the mate-1 reads.  Were the
	// mates mixed into one alignment, the left-pad fake would stretch
	// the mate-1 reads to the mate-2 width.
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"AAAA\tab\t2\tr2\tACGTACGTA\tJJJJJJJJJ\n" +
		"AAAA\tab\t1\tr3\tCGT\tKKK\n"
	out, _, err := run(t, input, leftPadAligner(), famalign.Opts{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 3)
	// Input order is preserved even though alignment grouped r1 with r3.
	assert.True(t, strings.Contains(lines[0], "\tr1\tACGT\t"))
	assert.True(t, strings.Contains(lines[1], "\tr2\tACGTACGTA\t"))
	assert.True(t, strings.Contains(lines[2], "\tr3\t-CGT\t KKK"))
}

func TestRunOrderPreserved(t *testing.T) {
	// Many families under high parallelism, with the fake aligner
	// stalling longer on earlier families.  Output order must still be
	// input order.
	var input strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&input, "BC%03d\tab\t1\tr%da\tACGT\tIIII\n", i, i)
		fmt.Fprintf(&input, "BC%03d\tab\t1\tr%db\tACG\tJJJ\n", i, i)
	}
	var mu sync.Mutex
	delay := 40 * time.Millisecond
	aligner := &msa.Fake{Fn: func(ctx context.Context, seqs []string) ([]string, error) {
		mu.Lock()
		d := delay
		if delay > time.Millisecond {
			delay -= time.Millisecond
		}
		mu.Unlock()
		time.Sleep(d)
		return leftPadAligner().Fn(ctx, seqs)
	}}
	out, stats, err := run(t, input.String(), aligner, famalign.Opts{Parallelism: 8})
	require.NoError(t, err)
	assert.Equal(t, 80, stats.Reads)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 80)
	for i := 0; i < 40; i++ {
		assert.True(t, strings.HasPrefix(lines[2*i], fmt.Sprintf("BC%03d\t", i)), lines[2*i])
		assert.True(t, strings.Contains(lines[2*i], fmt.Sprintf("\tr%da\t", i)), lines[2*i])
		assert.True(t, strings.Contains(lines[2*i+1], fmt.Sprintf("\tr%db\t", i)), lines[2*i+1])
	}
}

func TestRunFamilyFailureIsolated(t *testing.T) {
	// The middle family fails; its reads produce no output, the others
	// are unaffected, and the run as a whole reports the failure.
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr2\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr3\tFAIL\tIIII\n" +
		"CCCC\tab\t1\tr4\tACGT\tIIII\n"
	aligner := &msa.Fake{Fn: func(ctx context.Context, seqs []string) ([]string, error) {
		for _, s := range seqs {
			if s == "FAIL" {
				return nil, errors.Wrap(msa.ErrAlignmentFailure, "boom")
			}
		}
		return leftPadAligner().Fn(ctx, seqs)
	}}
	out, stats, err := run(t, input, aligner, famalign.Opts{})
	require.Error(t, err)
	assert.Equal(t, 1, stats.FailedFamilies)
	assert.Equal(t, 3, stats.Families)
	assert.Equal(t, 4, stats.Reads)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "AAAA\t"))
	assert.True(t, strings.HasPrefix(lines[1], "CCCC\t"))
}

func TestRunFailFast(t *testing.T) {
	input := "BBBB\tab\t1\tr1\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr2\tACGT\tIIII\n"
	aligner := &msa.Fake{Fn: func(_ context.Context, seqs []string) ([]string, error) {
		return nil, errors.Wrap(msa.ErrAlignmentFailure, "boom")
	}}
	_, _, err := run(t, input, aligner, famalign.Opts{FailFast: true})
	require.Error(t, err)
	assert.Equal(t, msa.ErrAlignmentFailure, errors.Cause(err))
}

func TestRunOutputMismatch(t *testing.T) {
	// An aligner returning the wrong record count must not produce any
	// rows for that family.
	input := "BBBB\tab\t1\tr1\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr2\tACGT\tIIII\n"
	aligner := &msa.Fake{Fn: func(_ context.Context, seqs []string) ([]string, error) {
		return []string{"ACGT"}, nil
	}}
	out, stats, err := run(t, input, aligner, famalign.Opts{})
	require.Error(t, err)
	assert.Equal(t, msa.ErrOutputMismatch, errors.Cause(err))
	assert.Equal(t, 1, stats.FailedFamilies)
	assert.Equal(t, "", out)
}

func TestRunRemapInconsistencyFatal(t *testing.T) {
	// A "successful" alignment that loses a base is an internal bug
	// and aborts the run even without FailFast.
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"AAAA\tab\t1\tr2\tACGT\tIIII\n" +
		"CCCC\tab\t1\tr3\tACGT\tIIII\n"
	aligner := &msa.Fake{Fn: func(_ context.Context, seqs []string) ([]string, error) {
		out := make([]string, len(seqs))
		for i, s := range seqs {
			out[i] = s[1:] + "-"
		}
		return out, nil
	}}
	_, _, err := run(t, input, aligner, famalign.Opts{})
	require.Error(t, err)
	assert.Equal(t, famalign.ErrRemapInconsistency, errors.Cause(err))
}

func TestRunLenientSkips(t *testing.T) {
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"garbage line\n" +
		"AAAA\tab\t1\tr2\tACG\tJJJ\n"
	out, stats, err := run(t, input, leftPadAligner(), famalign.Opts{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedRows)
	assert.Equal(t, 2, stats.Reads)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(t, lines, 2)
}

func TestRunCanceled(t *testing.T) {
	// Canceling the run must stop in-flight alignments; no partial
	// rows may be emitted for families that never completed.
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"AAAA\tab\t1\tr2\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr3\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr4\tACGT\tIIII\n"
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{}, 4)
	aligner := &msa.Fake{Fn: func(ctx context.Context, seqs []string) ([]string, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	go func() {
		<-started
		cancel()
	}()
	var out bytes.Buffer
	stats, err := famalign.Run(ctx, strings.NewReader(input), &out, aligner, famalign.Opts{Parallelism: 2})
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Equal(t, "", out.String())
	assert.Equal(t, 0, stats.Families-stats.FailedFamilies)
}

func TestRunStrictTruncatedFamilyNotEmitted(t *testing.T) {
	// A scan error mid-family must not let the truncated family be
	// aligned and written before the run fails.
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"BBBB\tab\t1\tr2\tACGT\tIIII\n" +
		"garbage line\n" +
		"BBBB\tab\t1\tr3\tACGT\tIIII\n"
	out, _, err := run(t, input, leftPadAligner(), famalign.Opts{Strict: true})
	require.Error(t, err)
	assert.Equal(t, famtsv.ErrMalformedRecord, errors.Cause(err))
	assert.False(t, strings.Contains(out, "r2"))
	assert.False(t, strings.Contains(out, "r3"))
}

func TestRunStrictStops(t *testing.T) {
	input := "AAAA\tab\t1\tr1\tACGT\tIIII\n" +
		"garbage line\n"
	_, _, err := run(t, input, leftPadAligner(), famalign.Opts{Strict: true})
	require.Error(t, err)
}
