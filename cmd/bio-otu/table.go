package main

import (
	"fmt"

	"github.com/grailbio/amplicon/otu"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
)

func newCmdTable() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "table",
		Short:    "Build an OTU table from a uclust-format mapping file",
		ArgsName: "mapping.uc otus.fa table.txt",
		Long: `
table counts the hit records of mapping.uc per OTU and sample and writes a
tab-delimited table with one row per OTU of otus.fa. Sample names come from
the read labels: "barcodelabel=<s>;" or "sample=<s>;" annotations, else the
label prefix before the first '_'.`,
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 3 {
			return fmt.Errorf("table takes mapping.uc otus.fa table.txt, but got %v", argv)
		}
		return otu.BuildTable(vcontext.Background(), argv[0], argv[1], argv[2])
	})
	return cmd
}
