package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/grailbio/amplicon/otu"
	"github.com/grailbio/amplicon/otu/runlog"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
	"v.io/x/lib/envvar"
)

func newCmdCluster() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "cluster",
		Short: "Quality filter, dereplicate and cluster reads into OTUs, then map reads back to build an OTU table",
		Long: `
cluster runs the UPARSE pipeline on a demultiplexed FASTQ file and writes
<out>.cluster.otus.fa and <out>.otu_table.txt. Progress is logged to the
console and, with tool output, to <out>.ufits-cluster.log.`,
	}
	opts := otu.DefaultOpts
	stringFlag := func(p *string, long, short, usage string) {
		cmd.Flags.StringVar(p, long, *p, usage)
		if short != "" {
			cmd.Flags.StringVar(p, short, *p, "Shorthand for -"+long)
		}
	}
	stringFlag(&opts.Input, "fastq", "i", "Input FASTQ file (demultiplexed, may be gzipped or on S3)")
	stringFlag(&opts.Out, "out", "o", "Base name for output files")
	stringFlag(&opts.Usearch, "usearch", "u", "USEARCH executable")
	stringFlag(&opts.Vsearch, "vsearch", "", "VSEARCH executable; empty disables acceleration")
	stringFlag(&opts.UchimeRef, "uchime-ref", "", "Reference chimera filtering: ITS, 16S, LSU, COI or a FASTA path")
	stringFlag(&opts.DBDir, "db-dir", "", "Directory holding the built-in reference databases (default: DB next to the executable)")
	cmd.Flags.Float64Var(&opts.MaxEE, "maxee", opts.MaxEE, "Quality trim expected errors")
	cmd.Flags.Float64Var(&opts.MaxEE, "e", opts.MaxEE, "Shorthand for -maxee")
	cmd.Flags.IntVar(&opts.PctOTU, "pct-otu", opts.PctOTU, "OTU clustering percent identity")
	cmd.Flags.IntVar(&opts.PctOTU, "p", opts.PctOTU, "Shorthand for -pct-otu")
	cmd.Flags.IntVar(&opts.MinSize, "minsize", opts.MinSize, "Minimum size to keep a unique sequence (singleton filter)")
	cmd.Flags.IntVar(&opts.MinSize, "m", opts.MinSize, "Shorthand for -minsize")
	cmd.Flags.IntVar(&opts.Threads, "threads", opts.Threads, "Threads for VSEARCH and read mapping; 0 lets the tools decide")
	cmd.Flags.BoolVar(&opts.MapFiltered, "map-filtered", opts.MapFiltered, "Map quality filtered reads back to OTUs instead of all reads")
	cmd.Flags.BoolVar(&opts.Unoise, "unoise", opts.Unoise, "Denoise dereplicated reads before clustering")
	cmd.Flags.BoolVar(&opts.Debug, "debug", opts.Debug, "Keep the temporary directory of intermediate files")
	cmd.Flags.BoolVar(&opts.GzipIntermediates, "gzip-intermediates", opts.GzipIntermediates, "With -debug, gzip the kept intermediate files")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("cluster takes no positional arguments, but got %v", argv)
		}
		return cluster(env, opts)
	})
	return cmd
}

func cluster(env *cmdline.Env, opts otu.Opts) (err error) {
	if err = opts.Validate(); err != nil {
		return err
	}
	if opts.DBDir == "" {
		if exe, e := os.Executable(); e == nil {
			opts.DBDir = filepath.Join(filepath.Dir(exe), "DB")
		}
	}
	ctx := vcontext.Background()
	rl, err := runlog.Open(ctx, opts.LogPath(), env.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if e := rl.Close(); e != nil && err == nil {
			err = e
		}
	}()
	log.Debug.Printf("%s", strings.Join(os.Args, " "))
	log.Debug.Printf("%s/%s, %d cores, %s", runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version())

	vars := envvar.SliceToMap(os.Environ())
	runner := otu.ExecRunner{Vars: vars}
	probed, err := otu.Probe(ctx, opts, vars, runner)
	if err != nil {
		return err
	}
	res, err := otu.Run(ctx, opts, probed, runner)
	if err != nil {
		log.Error.Printf("%v", err)
		return err
	}
	return otu.WriteSummary(env.Stdout, res)
}
