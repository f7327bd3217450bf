package otu

import (
	"context"
	"strings"

	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/base/errors"
)

// padChars are the fill characters cluster_otus appends to equalize
// sequence lengths.
const padChars = "Nn"

// stripPadding copies the FASTA records of in to out with trailing fill
// characters removed. Order and headers are preserved, so stripping an
// already stripped file reproduces it byte for byte.
func stripPadding(ctx context.Context, in, out string) (n int, err error) {
	r, closeIn, err := openInput(ctx, in)
	if err != nil {
		return 0, err
	}
	defer func() {
		if e := closeIn(); e != nil && err == nil {
			err = e
		}
	}()
	o, closeOut, err := createOutput(ctx, out)
	if err != nil {
		return 0, err
	}
	var (
		sc   = fasta.NewScanner(r)
		w    = fasta.NewWriter(o)
		rec  fasta.Record
		once errors.Once
	)
	for sc.Scan(&rec) {
		if once.Set(w.Write(rec.Header, strings.TrimRight(rec.Seq, padChars))); once.Err() != nil {
			break
		}
	}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, in))
	}
	once.Set(w.Flush())
	once.Set(closeOut())
	return w.N(), once.Err()
}
