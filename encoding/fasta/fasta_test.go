package fasta_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/testutil/expect"
)

var fastaData = ">seq1\n" + "ACGTA\nCGTAC\nGT\n" + ">seq2 A viral sequence\n" + "ACGT\r\n" + "\n" + "ACGT\n"

func scanAll(t *testing.T, data string) ([]fasta.Record, error) {
	s := fasta.NewScanner(strings.NewReader(data))
	var (
		recs []fasta.Record
		r    fasta.Record
	)
	for s.Scan(&r) {
		recs = append(recs, r)
	}
	return recs, s.Err()
}

func TestScan(t *testing.T) {
	recs, err := scanAll(t, fastaData)
	expect.NoError(t, err)
	expect.EQ(t, recs, []fasta.Record{
		{Header: "seq1", Seq: "ACGTACGTACGT"},
		{Header: "seq2 A viral sequence", Seq: "ACGTACGT"},
	})
	expect.EQ(t, recs[1].Name(), "seq2")
}

func TestScanEdgeCases(t *testing.T) {
	recs, err := scanAll(t, "")
	expect.NoError(t, err)
	expect.EQ(t, len(recs), 0)

	recs, err = scanAll(t, "\n>a\n>b\nAC")
	expect.NoError(t, err)
	expect.EQ(t, recs, []fasta.Record{{Header: "a"}, {Header: "b", Seq: "AC"}})

	_, err = scanAll(t, "ACGT\n>a\nAC\n")
	expect.HasSubstr(t, err.Error(), "malformed FASTA file")
}

func TestWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := fasta.NewWriter(&buf)
	recs, err := scanAll(t, fastaData)
	expect.NoError(t, err)
	for _, r := range recs {
		expect.NoError(t, w.Write(r.Header, r.Seq))
	}
	expect.NoError(t, w.Flush())
	expect.EQ(t, w.N(), 2)
	expect.EQ(t, buf.String(), ">seq1\nACGTACGTACGT\n>seq2 A viral sequence\nACGTACGT\n")

	n, err := fasta.Count(&buf)
	expect.NoError(t, err)
	expect.EQ(t, n, 2)
}

func TestSize(t *testing.T) {
	for _, test := range []struct {
		label string
		size  int
		ok    bool
	}{
		{"Uniq1;size=12;", 12, true},
		{"Uniq1;size=12", 12, true},
		{"R_1;barcodelabel=S1;size=3;", 3, true},
		{"Uniq1", 0, false},
		{"Uniq1;size=x;", 0, false},
	} {
		n, ok := fasta.ParseSize(test.label)
		expect.EQ(t, n, test.size, test.label)
		expect.EQ(t, ok, test.ok, test.label)
	}
	expect.EQ(t, fasta.WithSize("Uniq1;size=12;", 40), "Uniq1;size=40;")
	expect.EQ(t, fasta.WithSize("R_1;barcodelabel=S1;", 2), "R_1;barcodelabel=S1;size=2;")
	expect.EQ(t, fasta.StripAnnotations("OTU3;size=9;"), "OTU3")
	expect.EQ(t, fasta.StripAnnotations("OTU3"), "OTU3")
}
