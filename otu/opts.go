package otu

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// Opts configures one clustering run. It is immutable once Run starts.
type Opts struct {
	// Input is the demultiplexed FASTQ file. It may be gzip or bzip2
	// compressed, and may live on any file.Implementation (e.g. s3://).
	Input string
	// Out is the output basename. Every intermediate and final artifact name
	// is derived from it.
	Out string
	// WorkDir is where the log file, the temporary directory and the final
	// outputs are placed. Empty means the current directory. WorkDir is
	// ignored when Out is an absolute path.
	WorkDir string

	// MaxEE is the expected-error threshold. Reads are kept iff their
	// expected error sum is strictly below MaxEE.
	MaxEE float64
	// PctOTU is the target OTU percent identity; the clustering radius is
	// 100-PctOTU.
	PctOTU int
	// MinSize drops unique sequences seen fewer than MinSize times before
	// clustering.
	MinSize int

	// Usearch is the clustering engine executable.
	Usearch string
	// Vsearch is the optional accelerator executable.
	Vsearch string
	// Threads is passed to the accelerator and to read mapping. 0 leaves
	// the choice to the tool.
	Threads int

	// UchimeRef selects the reference chimera database: one of the built-in
	// names (ITS, 16S, LSU, COI), resolved under DBDir, or a FASTA path.
	// Empty disables chimera filtering.
	UchimeRef string
	// DBDir holds the built-in reference databases as <NAME>.extracted.fa.
	DBDir string

	// MapFiltered maps the quality filtered reads instead of all reads.
	MapFiltered bool
	// Unoise enables the denoising stage.
	Unoise bool
	// Debug keeps the temporary directory.
	Debug bool
	// GzipIntermediates compresses the kept intermediates when Debug is set.
	GzipIntermediates bool
}

// DefaultOpts holds the default values of Opts.
var DefaultOpts = Opts{
	Out:     "out",
	MaxEE:   1.0,
	PctOTU:  97,
	MinSize: 2,
	Usearch: "usearch9",
	Vsearch: "vsearch",
}

// Validate checks o for settings that would make the pipeline meaningless.
func (o *Opts) Validate() error {
	switch {
	case o.Input == "":
		return errors.E(errors.Invalid, "an input FASTQ file is required")
	case o.Out == "":
		return errors.E(errors.Invalid, "an output basename is required")
	case o.MaxEE < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("maxee must be non-negative, got %v", o.MaxEE))
	case o.PctOTU <= 0 || o.PctOTU >= 100:
		return errors.E(errors.Invalid, fmt.Sprintf("pct_otu must be in (0, 100), got %d", o.PctOTU))
	case o.MinSize < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("minsize must be at least 1, got %d", o.MinSize))
	case o.Usearch == "":
		return errors.E(errors.Invalid, "a usearch executable is required")
	case o.Threads < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("threads must be non-negative, got %d", o.Threads))
	}
	return nil
}

// Radius returns the OTU clustering radius, in percent.
func (o *Opts) Radius() int { return 100 - o.PctOTU }

// eeTag renders MaxEE the way it appears in artifact names: "1.0", "0.5",
// "1.25".
func (o *Opts) eeTag() string {
	s := strconv.FormatFloat(o.MaxEE, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// prefix returns the path prefix for files placed next to the caller:
// the log and the final outputs.
func (o *Opts) prefix() string {
	if filepath.IsAbs(o.Out) {
		return o.Out
	}
	return filepath.Join(o.WorkDir, o.Out)
}

// LogPath returns the path of the run log, <out>.ufits-cluster.log.
func (o *Opts) LogPath() string { return o.prefix() + ".ufits-cluster.log" }

// TmpDir returns the run's temporary directory, <out>_tmp.
func (o *Opts) TmpDir() string { return o.prefix() + "_tmp" }

// FinalOTUsPath returns the path of the durable OTU FASTA.
func (o *Opts) FinalOTUsPath() string { return o.prefix() + ".cluster.otus.fa" }

// FinalTablePath returns the path of the durable OTU table.
func (o *Opts) FinalTablePath() string { return o.prefix() + ".otu_table.txt" }
