package otu

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/amplicon/encoding/fasta"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/assert"
)

const (
	fakeUsearch = "/opt/fake/usearch9"
	fakeVsearch = "/opt/fake/vsearch"
)

// fakeRunner interprets rendered usearch and vsearch command lines in
// process. Clustering is a greedy Hamming-distance rendition that is good
// enough to exercise the pipeline; vsearch filtering and dereplication reuse
// the native implementations.
type fakeRunner struct {
	mu       sync.Mutex
	commands []Command
	// banners maps an executable path to its version banner.
	banners map[string]string
	// fail makes the named operation exit with an error.
	fail string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{banners: map[string]string{
		fakeUsearch: "usearch v9.2.64_i86linux32",
		fakeVsearch: "vsearch v2.15.0_linux_x86_64, 15.6GB RAM, 8 cores",
	}}
}

func (f *fakeRunner) Run(ctx context.Context, c Command) error {
	_, err := f.Output(ctx, c)
	return err
}

func (f *fakeRunner) Output(ctx context.Context, c Command) ([]byte, error) {
	f.mu.Lock()
	f.commands = append(f.commands, c)
	f.mu.Unlock()
	op, args := parseArgs(c.Args)
	if op == f.fail {
		return []byte("fatal"), &CommandError{Cmd: c, Err: fmt.Errorf("exit status 1"), Output: []byte("fatal")}
	}
	if op == "version" {
		banner, ok := f.banners[c.Path]
		if !ok {
			return nil, &CommandError{Cmd: c, Err: fmt.Errorf("exit status 127")}
		}
		return []byte(banner + "\n"), nil
	}
	return nil, fakeExec(ctx, op, args)
}

// ops returns the operation names run so far, in order.
func (f *fakeRunner) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ops []string
	for _, c := range f.commands {
		op, _ := parseArgs(c.Args)
		ops = append(ops, op)
	}
	return ops
}

// commandsFor returns the commands whose executable is path.
func (f *fakeRunner) commandsFor(path string) []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Command
	for _, c := range f.commands {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// parseArgs splits a command line into its operation and a flag map. The
// operation is the first flag; its value is stored under "in".
func parseArgs(args []string) (string, map[string]string) {
	m := map[string]string{}
	op := ""
	for i := 0; i < len(args); i++ {
		key := strings.TrimLeft(args[i], "-")
		val := ""
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			val = args[i+1]
			i++
		}
		if op == "" {
			op = key
			m["in"] = val
			continue
		}
		m[key] = val
	}
	return op, m
}

func fakeExec(ctx context.Context, op string, args map[string]string) error {
	switch op {
	case "fastq_filter":
		if args["fastq_maxee"] == "" {
			_, err := convertFASTQ(ctx, ConvertCmd{Input: args["in"], FastaOut: args["fastaout"]})
			return err
		}
		maxEE, err := strconv.ParseFloat(args["fastq_maxee"], 64)
		if err != nil {
			return err
		}
		_, err = filterFASTQ(ctx, FilterCmd{Input: args["in"], MaxEE: maxEE,
			FastqOut: args["fastqout"], FastaOut: args["fastaout"]})
		return err
	case "derep_fulllength":
		_, err := dereplicate(ctx, DerepCmd{Input: args["in"], Output: args["output"]})
		return err
	case "cluster_fast":
		return writeRecords(args["centroids"], readRecords(args["in"]))
	case "sortbysize":
		minSize, err := strconv.Atoi(args["minsize"])
		if err != nil {
			return err
		}
		var kept []fasta.Record
		for _, r := range readRecords(args["in"]) {
			if n, _ := fasta.ParseSize(r.Header); n >= minSize {
				kept = append(kept, r)
			}
		}
		sort.SliceStable(kept, func(i, j int) bool {
			a, _ := fasta.ParseSize(kept[i].Header)
			b, _ := fasta.ParseSize(kept[j].Header)
			return a > b
		})
		return writeRecords(args["fastaout"], kept)
	case "cluster_otus":
		radius, err := strconv.Atoi(args["otu_radius_pct"])
		if err != nil {
			return err
		}
		var otus []fasta.Record
		for _, r := range readRecords(args["in"]) {
			absorbed := false
			for _, c := range otus {
				if identity(r.Seq, strings.TrimRight(c.Seq, "N")) >= float64(100-radius)/100 {
					absorbed = true
					break
				}
			}
			if !absorbed {
				otus = append(otus, fasta.Record{
					Header: fmt.Sprintf("%s%d", args["relabel"], len(otus)+1),
					Seq:    r.Seq + "NNNN",
				})
			}
		}
		return writeRecords(args["otus"], otus)
	case "uchime_ref":
		ref := map[string]bool{}
		for _, r := range readRecords(args["db"]) {
			ref[r.Seq] = true
		}
		var kept []fasta.Record
		for _, r := range readRecords(args["in"]) {
			if !ref[r.Seq] {
				kept = append(kept, r)
			}
		}
		return writeRecords(args["nonchimeras"], kept)
	case "usearch_global":
		id, err := strconv.ParseFloat(args["id"], 64)
		if err != nil {
			return err
		}
		db := readRecords(args["db"])
		f, err := os.Create(args["uc"])
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		for _, q := range readRecords(args["in"]) {
			best, bestID := -1, 0.0
			for i, t := range db {
				if x := identity(q.Seq, t.Seq); x >= id && x > bestID {
					best, bestID = i, x
				}
			}
			if best < 0 {
				fmt.Fprintf(w, "N\t*\t*\t*\t.\t*\t*\t*\t%s\t*\n", q.Name())
				continue
			}
			fmt.Fprintf(w, "H\t%d\t%d\t%.1f\t+\t0\t0\t%dM\t%s\t%s\n",
				best, len(q.Seq), 100*bestID, len(q.Seq), q.Name(), db[best].Name())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return f.Close()
	}
	return errors.E(errors.NotSupported, "fake runner: "+op)
}

// identity is the fraction of matching positions of two equal-length
// sequences, or 0.
func identity(a, b string) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	same := 0
	for i := range a {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}

func readRecords(path string) []fasta.Record {
	f, err := os.Open(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	var (
		sc   = fasta.NewScanner(f)
		recs []fasta.Record
		rec  fasta.Record
	)
	for sc.Scan(&rec) {
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		panic(err)
	}
	return recs
}

func writeRecords(path string, recs []fasta.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := fasta.NewWriter(f)
	for _, r := range recs {
		if err := w.Write(r.Header, r.Seq); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// testTemplates returns n random amplicon sequences of length 60.
func testTemplates(r *rand.Rand, n int) []string {
	const bases = "ACGT"
	out := make([]string, n)
	for i := range out {
		b := make([]byte, 60)
		for j := range b {
			b[j] = bases[r.Intn(4)]
		}
		out[i] = string(b)
	}
	return out
}

// writeTestReads writes n reads drawn from four templates over three
// samples. About a tenth of the reads carry one substitution and about a
// tenth have low quality tails that fail the default expected-error filter.
// It returns the templates.
func writeTestReads(t *testing.T, path string, n int) []string {
	r := rand.New(rand.NewSource(1))
	templates := testTemplates(r, 4)
	weights := []int{50, 25, 15, 10}
	f, err := os.Create(path)
	assert.NoError(t, err)
	w := bufio.NewWriter(f)
	for i := 0; i < n; i++ {
		k, x := 0, r.Intn(100)
		for x >= weights[k] {
			x -= weights[k]
			k++
		}
		seq := []byte(templates[k])
		if r.Intn(10) == 0 {
			p := r.Intn(len(seq))
			seq[p] = "ACGT"[(strings.IndexByte("ACGT", seq[p])+1)%4]
		}
		qual := []byte(strings.Repeat("I", len(seq)))
		if r.Intn(10) == 0 {
			copy(qual[len(qual)-5:], "#####")
		}
		fmt.Fprintf(w, "@R_%d;barcodelabel=S%d;\n%s\n+\n%s\n", i+1, i%3+1, seq, qual)
	}
	assert.NoError(t, w.Flush())
	assert.NoError(t, f.Close())
	return templates
}
