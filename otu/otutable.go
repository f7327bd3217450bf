package otu

import (
	"context"
	"io"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// ucRecord is one line of a uclust-format mapping file.
type ucRecord struct {
	Type    string // H: hit, N: no hit, S: centroid, C: cluster summary
	Cluster string
	Size    string
	PctID   string
	Strand  string
	Unused1 string
	Unused2 string
	Align   string
	Query   string
	Target  string
}

// sampleName derives the sample a read belongs to from its label. The
// demultiplexer writes either "barcodelabel=<s>;" or "sample=<s>;"
// annotations; bare labels use the prefix before the first '_'.
func sampleName(label string) string {
	for _, key := range []string{"barcodelabel=", "sample="} {
		i := strings.Index(label, key)
		if i < 0 {
			continue
		}
		if i > 0 && label[i-1] != ';' {
			continue
		}
		s := label[i+len(key):]
		if j := strings.IndexByte(s, ';'); j >= 0 {
			s = s[:j]
		}
		return s
	}
	label = fasta.StripAnnotations(label)
	if i := strings.IndexByte(label, '_'); i > 0 {
		return label[:i]
	}
	return label
}

// sampleKey orders sample columns lexically.
type sampleKey string

func (k sampleKey) Compare(c llrb.Comparable) int {
	return strings.Compare(string(k), string(c.(sampleKey)))
}

// Table counts mapped reads per OTU and sample.
type Table struct {
	// OTUs lists the OTU ids in the order of the OTU FASTA.
	OTUs []string
	// Samples lists the sample names in lexical order.
	Samples []string
	counts  map[string]map[string]int64
}

// Count returns the number of reads of sample mapped to otu.
func (t *Table) Count(otu, sample string) int64 { return t.counts[otu][sample] }

// ReadTable tallies the hit records of a mapping file against the OTUs of
// an OTU FASTA file. Hits to targets absent from the FASTA are an error.
func ReadTable(ctx context.Context, ucPath, otusPath string) (*Table, error) {
	t := &Table{counts: map[string]map[string]int64{}}
	in, closeIn, err := openInput(ctx, otusPath)
	if err != nil {
		return nil, err
	}
	sc := fasta.NewScanner(in)
	var rec fasta.Record
	for sc.Scan(&rec) {
		id := fasta.StripAnnotations(rec.Name())
		if _, ok := t.counts[id]; ok {
			continue
		}
		t.OTUs = append(t.OTUs, id)
		t.counts[id] = map[string]int64{}
	}
	once := errors.Once{}
	if err := sc.Err(); err != nil {
		once.Set(errors.E(err, otusPath))
	}
	once.Set(closeIn())
	if err := once.Err(); err != nil {
		return nil, err
	}

	in, closeIn, err = openInput(ctx, ucPath)
	if err != nil {
		return nil, err
	}
	var samples llrb.Tree
	r := tsv.NewReader(in)
	for {
		var uc ucRecord
		if err := r.Read(&uc); err != nil {
			if err != io.EOF {
				once.Set(errors.E(err, ucPath))
			}
			break
		}
		if uc.Type != "H" {
			continue
		}
		otu := fasta.StripAnnotations(uc.Target)
		row, ok := t.counts[otu]
		if !ok {
			once.Set(errors.E(errors.Invalid, ucPath, "read", uc.Query, "mapped to unknown OTU", otu))
			break
		}
		sample := sampleName(uc.Query)
		samples.Insert(sampleKey(sample))
		row[sample]++
	}
	once.Set(closeIn())
	if err := once.Err(); err != nil {
		return nil, err
	}
	samples.Do(func(c llrb.Comparable) bool {
		t.Samples = append(t.Samples, string(c.(sampleKey)))
		return false
	})
	return t, nil
}

// Write writes t as a tab-delimited table with header "OTUId" followed by
// the sample names, and one row per OTU.
func (t *Table) Write(w io.Writer) error {
	out := tsv.NewWriter(w)
	out.WriteString("OTUId")
	for _, s := range t.Samples {
		out.WriteString(s)
	}
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, otu := range t.OTUs {
		out.WriteString(otu)
		row := t.counts[otu]
		for _, s := range t.Samples {
			out.WriteInt64(row[s])
		}
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

// BuildTable reads the mapping file ucPath and the OTU FASTA otusPath and
// writes the OTU table to outPath.
func BuildTable(ctx context.Context, ucPath, otusPath, outPath string) error {
	t, err := ReadTable(ctx, ucPath, otusPath)
	if err != nil {
		return err
	}
	w, closer, err := createOutput(ctx, outPath)
	if err != nil {
		return err
	}
	once := errors.Once{}
	once.Set(t.Write(w))
	once.Set(closer())
	return once.Err()
}
