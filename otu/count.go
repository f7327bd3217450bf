package otu

import (
	"bufio"
	"context"
	"fmt"
	"strconv"

	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/amplicon/encoding/fastq"
	"github.com/grailbio/base/errors"
)

func countFASTQ(ctx context.Context, path string) (int, error) {
	r, closer, err := openInput(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := fastq.Count(r)
	once := errors.Once{}
	if err != nil {
		once.Set(errors.E(err, path))
	}
	once.Set(closer())
	return n, once.Err()
}

func countFASTA(ctx context.Context, path string) (int, error) {
	r, closer, err := openInput(ctx, path)
	if err != nil {
		return 0, err
	}
	n, err := fasta.Count(r)
	once := errors.Once{}
	if err != nil {
		once.Set(errors.E(err, path))
	}
	once.Set(closer())
	return n, once.Err()
}

// countMapped returns the number of hit ("H") records in a uclust-format
// mapping file. vsearch also writes "N" records for unmatched queries;
// usearch may or may not, depending on version, so only hits are counted.
func countMapped(ctx context.Context, path string) (int, error) {
	r, closer, err := openInput(ctx, path)
	if err != nil {
		return 0, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, 16<<20)
	n := 0
	for sc.Scan() {
		if line := sc.Bytes(); len(line) > 1 && line[0] == 'H' && line[1] == '\t' {
			n++
		}
	}
	once := errors.Once{}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, path))
	}
	once.Set(closer())
	return n, once.Err()
}

// mappedPercent returns 100*mapped/raw, or 0 when raw is 0.
func mappedPercent(mapped, raw int) float64 {
	if raw == 0 {
		return 0
	}
	return 100 * float64(mapped) / float64(raw)
}

// commas formats n with thousands separators: 1234567 -> "1,234,567".
func commas(n int) string {
	s := strconv.Itoa(n)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// humanSize formats a byte count with binary units: 12595 -> "12.3 KB".
func humanSize(n int64) string {
	v := float64(n)
	for _, unit := range []string{"", "K", "M", "G", "T", "P", "E"} {
		if v < 1024 && v > -1024 {
			return fmt.Sprintf("%3.1f %sB", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1f ZB", v)
}
