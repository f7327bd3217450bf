package otu

import (
	"context"

	"github.com/dgryski/go-farm"
	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
)

// unique is one distinct sequence seen by dereplicate.
type unique struct {
	label string // name of the first read carrying the sequence
	seq   string
	size  int
}

// uniqueSet collapses identical sequences. Sequences are bucketed by their
// farmhash fingerprint and compared in full within a bucket, so hash
// collisions never merge distinct sequences.
type uniqueSet struct {
	hash    func([]byte) uint64
	buckets map[uint64][]int32
	uniques []unique
	total   int
}

func newUniqueSet() *uniqueSet {
	return &uniqueSet{hash: farm.Fingerprint64, buckets: map[uint64][]int32{}}
}

// add records one occurrence of seq.
func (s *uniqueSet) add(label, seq string) {
	s.total++
	h := s.hash(gunsafe.StringToBytes(seq))
	for _, i := range s.buckets[h] {
		if s.uniques[i].seq == seq {
			s.uniques[i].size++
			return
		}
	}
	s.buckets[h] = append(s.buckets[h], int32(len(s.uniques)))
	s.uniques = append(s.uniques, unique{label: label, seq: seq, size: 1})
}

// dereplicate is the in-process rendition of DerepCmd. Unique sequences are
// written in order of first appearance, labelled with the name of their first
// read and ";size=N;".
func dereplicate(ctx context.Context, c DerepCmd) (n int, err error) {
	in, closeIn, err := openInput(ctx, c.Input)
	if err != nil {
		return 0, err
	}
	set := newUniqueSet()
	sc := fasta.NewScanner(in)
	var rec fasta.Record
	for sc.Scan(&rec) {
		set.add(rec.Name(), rec.Seq)
	}
	once := errors.Once{}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, c.Input))
	}
	once.Set(closeIn())
	if err := once.Err(); err != nil {
		return 0, err
	}

	out, closeOut, err := createOutput(ctx, c.Output)
	if err != nil {
		return 0, err
	}
	w := fasta.NewWriter(out)
	for _, u := range set.uniques {
		if once.Set(w.Write(fasta.WithSize(u.label, u.size), u.seq)); once.Err() != nil {
			break
		}
	}
	once.Set(w.Flush())
	once.Set(closeOut())
	return len(set.uniques), once.Err()
}
