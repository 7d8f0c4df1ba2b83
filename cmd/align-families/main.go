package main

// See doc.go for documentation.

import (
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"

	"github.com/NickSto/duplex/famalign"
	"github.com/NickSto/duplex/msa"
)

var (
	processes = flag.Int("p", 1, "Number of concurrent mafft invocations.")
	timeout   = flag.Duration("timeout", 0, "Time limit per family alignment (0 means none).")
	strict    = flag.Bool("strict", false, "Stop at the first malformed input row instead of skipping it.")
	failFast  = flag.Bool("fail-fast", false, "Stop at the first family that fails to align.")
	mafftBin  = flag.String("mafft", "mafft", "Name or path of the MAFFT binary.")
	output    = flag.String("output", "", "Output path (default stdout). A .gz suffix enables gzip compression.")
)

func main() {
	shutdown := grail.Init()
	err := run()
	shutdown()
	if err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	ctx := vcontext.Background()
	start := time.Now()
	if flag.NArg() > 1 {
		return pkgerrors.Errorf("at most one input path expected, got %d", flag.NArg())
	}

	var in io.Reader = os.Stdin
	if flag.NArg() == 1 {
		f, openErr := file.Open(ctx, flag.Arg(0))
		if openErr != nil {
			return openErr
		}
		defer file.CloseAndReport(ctx, f, &err)
		in = f.Reader(ctx)
		if u := compress.NewReaderPath(in, f.Name()); u != nil {
			in = u
		}
	}

	var out io.Writer = os.Stdout
	closers := errors.Once{}
	if *output != "" {
		f, createErr := file.Create(ctx, *output)
		if createErr != nil {
			return createErr
		}
		defer func() {
			closers.Set(f.Close(ctx))
			if err == nil {
				err = closers.Err()
			}
		}()
		out = f.Writer(ctx)
		if strings.HasSuffix(*output, ".gz") {
			gz := gzip.NewWriter(out)
			defer func() { closers.Set(gz.Close()) }()
			out = gz
		}
	}

	aligner, err := msa.NewMafft(*mafftBin, *timeout)
	if err != nil {
		return err
	}
	stats, err := famalign.Run(ctx, in, out, aligner, famalign.Opts{
		Parallelism: *processes,
		Strict:      *strict,
		FailFast:    *failFast,
	})
	stats.Log(time.Since(start))
	if err != nil {
		return err
	}
	if stats.SkippedRows > 0 {
		return pkgerrors.Errorf("dropped %d malformed input rows", stats.SkippedRows)
	}
	return nil
}
