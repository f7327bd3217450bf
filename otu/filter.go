package otu

import (
	"context"
	"strings"

	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/amplicon/encoding/fastq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
)

// filterNative is the in-process rendition of FilterCmd and ConvertCmd. The
// two passes read the input independently and run concurrently.
func filterNative(ctx context.Context, filter FilterCmd, convert ConvertCmd) error {
	return traverse.Each(2, func(i int) error {
		if i == 0 {
			_, err := filterFASTQ(ctx, filter)
			return err
		}
		_, err := convertFASTQ(ctx, convert)
		return err
	})
}

// fastaHeader returns the FASTA header for a FASTQ read: its ID line without
// the '@'.
func fastaHeader(r *fastq.Read) string { return strings.TrimPrefix(r.ID, "@") }

// filterFASTQ keeps reads whose expected error sum is strictly below
// c.MaxEE. It returns the number of reads kept.
func filterFASTQ(ctx context.Context, c FilterCmd) (n int, err error) {
	in, closeIn, err := openInput(ctx, c.Input)
	if err != nil {
		return 0, err
	}
	defer func() {
		if e := closeIn(); e != nil && err == nil {
			err = e
		}
	}()
	fqOut, closeFQ, err := createOutput(ctx, c.FastqOut)
	if err != nil {
		return 0, err
	}
	faOut, closeFA, err := createOutput(ctx, c.FastaOut)
	if err != nil {
		_ = closeFQ()
		return 0, err
	}
	var (
		sc   = fastq.NewScanner(in, fastq.All)
		fqW  = fastq.NewWriter(fqOut)
		faW  = fasta.NewWriter(faOut)
		once errors.Once
		read fastq.Read
	)
	for sc.Scan(&read) {
		ee, e := read.ExpectedErrors()
		if e != nil {
			once.Set(errors.E(e, c.Input, "read", read.Name()))
			break
		}
		if ee >= c.MaxEE {
			continue
		}
		once.Set(fqW.Write(&read))
		once.Set(faW.Write(fastaHeader(&read), read.Seq))
		if once.Err() != nil {
			break
		}
	}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, c.Input))
	}
	once.Set(fqW.Flush())
	once.Set(faW.Flush())
	once.Set(closeFQ())
	once.Set(closeFA())
	return fqW.N(), once.Err()
}

// convertFASTQ writes every read of c.Input as FASTA. It returns the number
// of reads written.
func convertFASTQ(ctx context.Context, c ConvertCmd) (n int, err error) {
	in, closeIn, err := openInput(ctx, c.Input)
	if err != nil {
		return 0, err
	}
	defer func() {
		if e := closeIn(); e != nil && err == nil {
			err = e
		}
	}()
	out, closeOut, err := createOutput(ctx, c.FastaOut)
	if err != nil {
		return 0, err
	}
	var (
		sc   = fastq.NewScanner(in, fastq.ID|fastq.Seq)
		w    = fasta.NewWriter(out)
		once errors.Once
		read fastq.Read
	)
	for sc.Scan(&read) {
		if err := w.Write(fastaHeader(&read), read.Seq); err != nil {
			once.Set(err)
			break
		}
	}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, c.Input))
	}
	once.Set(w.Flush())
	once.Set(closeOut())
	return w.N(), once.Err()
}
