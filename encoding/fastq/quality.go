package fastq

import (
	"errors"
	"math"
)

const (
	// PhredOffset is the ASCII offset of Sanger / Illumina 1.8+ quality strings.
	PhredOffset = 33
	// MaxQual is the highest quality score accepted by ExpectedErrors. It
	// matches the "--fastq_qmax 55" setting passed to vsearch.
	MaxQual = 55
)

// ErrQual is returned when a quality character falls outside
// [PhredOffset, PhredOffset+MaxQual], or when the quality string length
// differs from the sequence length.
var ErrQual = errors.New("FASTQ quality out of range")

// errProb[q] is 10^(-q/10).
var errProb [MaxQual + 1]float64

func init() {
	for q := range errProb {
		errProb[q] = math.Pow(10, -float64(q)/10)
	}
}

// ExpectedErrors returns the sum of the per-base error probabilities implied
// by the read's Phred+33 quality string.
func (r *Read) ExpectedErrors() (float64, error) {
	if len(r.Qual) != len(r.Seq) {
		return 0, ErrQual
	}
	var ee float64
	for i := 0; i < len(r.Qual); i++ {
		q := int(r.Qual[i]) - PhredOffset
		if q < 0 || q > MaxQual {
			return 0, ErrQual
		}
		ee += errProb[q]
	}
	return ee, nil
}
