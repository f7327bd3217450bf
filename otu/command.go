package otu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// Command is a fully rendered invocation of an external tool.
type Command struct {
	// Path is the executable, either a name resolved through PATH or an
	// absolute path found by Probe.
	Path string
	Args []string
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Op is a delegated operation. A Backend renders an Op into a Command.
type Op interface {
	opName() string
}

// FilterCmd drops reads whose expected error reaches MaxEE and writes the
// survivors as FASTQ and FASTA.
type FilterCmd struct {
	Input    string
	MaxEE    float64
	FastqOut string
	FastaOut string
}

// ConvertCmd writes every read of a FASTQ file as FASTA, unfiltered.
type ConvertCmd struct {
	Input    string
	FastaOut string
}

// DerepCmd collapses identical full-length sequences, annotating each unique
// sequence with ";size=N;".
type DerepCmd struct {
	Input  string
	Output string
}

// DenoiseCmd clusters dereplicated sequences at a coarse identity to remove
// sequencing-error variants.
type DenoiseCmd struct {
	Input     string
	Centroids string
	// ID is the identity threshold, as a fraction.
	ID       float64
	MaxDiffs int
	AbSkew   int
}

// SortCmd drops sequences with size below MinSize and sorts the rest by
// decreasing size.
type SortCmd struct {
	Input   string
	MinSize int
	Output  string
}

// ClusterCmd runs greedy OTU clustering and relabels centroids
// <Relabel>1, <Relabel>2, ...
type ClusterCmd struct {
	Input     string
	RadiusPct int
	Relabel   string
	OTUs      string
}

// ChimeraCmd removes sequences flagged as chimeric against DB.
type ChimeraCmd struct {
	Input       string
	DB          string
	NonChimeras string
	MinDiv      float64
}

// MapCmd maps reads to OTUs on the plus strand and records best hits in
// uclust format.
type MapCmd struct {
	Reads string
	DB    string
	// ID is the identity threshold, as a fraction.
	ID float64
	UC string
}

// VersionCmd asks a tool for its version banner.
type VersionCmd struct{}

func (FilterCmd) opName() string { return "fastq_filter" }
func (ConvertCmd) opName() string { return "fastq_convert" }
func (DerepCmd) opName() string { return "derep_fulllength" }
func (DenoiseCmd) opName() string { return "cluster_fast" }
func (SortCmd) opName() string { return "sortbysize" }
func (ClusterCmd) opName() string { return "cluster_otus" }
func (ChimeraCmd) opName() string { return "uchime_ref" }
func (MapCmd) opName() string { return "usearch_global" }
func (VersionCmd) opName() string { return "version" }

// Backend renders operations for one tool family.
type Backend interface {
	// Name is the tool family name, e.g. "vsearch".
	Name() string
	// Render returns the command for op. It returns an errors.NotSupported
	// error for operations the tool family does not implement.
	Render(op Op) (Command, error)
}

func unsupported(b Backend, op Op) error {
	return errors.E(errors.NotSupported, fmt.Sprintf("%s does not implement %s", b.Name(), op.opName()))
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// vsearchBackend renders vsearch (>= 1.9.1) command lines.
type vsearchBackend struct {
	path    string
	threads int
}

// NewVsearch returns the vsearch backend. threads > 0 adds --threads to the
// operations that parallelize.
func NewVsearch(path string, threads int) Backend {
	return &vsearchBackend{path: path, threads: threads}
}

func (b *vsearchBackend) Name() string { return "vsearch" }

func (b *vsearchBackend) Render(op Op) (Command, error) {
	var args []string
	switch op := op.(type) {
	case FilterCmd:
		args = []string{"--fastq_filter", op.Input, "--fastq_maxee", ftoa(op.MaxEE),
			"--fastqout", op.FastqOut, "--fastaout", op.FastaOut, "--fastq_qmax", "55"}
	case ConvertCmd:
		args = []string{"--fastq_filter", op.Input, "--fastaout", op.FastaOut, "--fastq_qmax", "55"}
	case DerepCmd:
		args = []string{"--derep_fulllength", op.Input, "--sizeout", "--output", op.Output}
	case ChimeraCmd:
		args = []string{"--uchime_ref", op.Input, "--db", op.DB, "--nonchimeras", op.NonChimeras,
			"--mindiv", ftoa(op.MinDiv)}
		args = b.withThreads(args)
	case MapCmd:
		args = []string{"--usearch_global", op.Reads, "--strand", "plus", "--id", ftoa(op.ID),
			"--db", op.DB, "--uc", op.UC}
		args = b.withThreads(args)
	case VersionCmd:
		args = []string{"--version"}
	default:
		return Command{}, unsupported(b, op)
	}
	return Command{Path: b.path, Args: args}, nil
}

func (b *vsearchBackend) withThreads(args []string) []string {
	if b.threads > 0 {
		args = append(args, "--threads", strconv.Itoa(b.threads))
	}
	return args
}

// usearchBackend renders usearch v8/v9 command lines.
type usearchBackend struct {
	path    string
	threads int
}

// NewUsearch returns the usearch backend. threads > 0 adds -threads to read
// mapping.
func NewUsearch(path string, threads int) Backend {
	return &usearchBackend{path: path, threads: threads}
}

func (b *usearchBackend) Name() string { return "usearch" }

func (b *usearchBackend) Render(op Op) (Command, error) {
	var args []string
	switch op := op.(type) {
	case DenoiseCmd:
		args = []string{"-cluster_fast", op.Input, "-centroids", op.Centroids, "-id", ftoa(op.ID),
			"-maxdiffs", strconv.Itoa(op.MaxDiffs), "-abskew", strconv.Itoa(op.AbSkew),
			"-sizein", "-sizeout", "-sort", "size"}
	case SortCmd:
		args = []string{"-sortbysize", op.Input, "-minsize", strconv.Itoa(op.MinSize), "-fastaout", op.Output}
	case ClusterCmd:
		args = []string{"-cluster_otus", op.Input, "-relabel", op.Relabel,
			"-otu_radius_pct", strconv.Itoa(op.RadiusPct), "-otus", op.OTUs}
	case ChimeraCmd:
		args = []string{"-uchime_ref", op.Input, "-strand", "plus", "-db", op.DB,
			"-nonchimeras", op.NonChimeras, "-mindiv", ftoa(op.MinDiv)}
	case MapCmd:
		args = []string{"-usearch_global", op.Reads, "-strand", "plus", "-id", ftoa(op.ID),
			"-db", op.DB, "-uc", op.UC}
		if b.threads > 0 {
			args = append(args, "-threads", strconv.Itoa(b.threads))
		}
	case VersionCmd:
		args = []string{"-version"}
	default:
		return Command{}, unsupported(b, op)
	}
	return Command{Path: b.path, Args: args}, nil
}
