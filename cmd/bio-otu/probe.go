package main

import (
	"fmt"
	"os"

	"github.com/grailbio/amplicon/otu"
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"v.io/x/lib/cmdline"
	"v.io/x/lib/envvar"
)

func newCmdProbe() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "probe",
		Short: "Report the clustering tools found on PATH and the mode cluster would use",
	}
	opts := otu.DefaultOpts
	cmd.Flags.StringVar(&opts.Usearch, "usearch", opts.Usearch, "USEARCH executable")
	cmd.Flags.StringVar(&opts.Vsearch, "vsearch", opts.Vsearch, "VSEARCH executable; empty disables acceleration")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		vars := envvar.SliceToMap(os.Environ())
		probed, err := otu.Probe(vcontext.Background(), opts, vars, otu.ExecRunner{Vars: vars})
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "mode\t%s\n", probed.Mode)
		fmt.Fprintf(env.Stdout, "usearch\t%s\tv%s\n", probed.Usearch, probed.UsearchVersion)
		if probed.Mode == otu.Accelerated {
			fmt.Fprintf(env.Stdout, "vsearch\t%s\tv%s\n", probed.Vsearch, probed.VsearchVersion)
		}
		return nil
	})
	return cmd
}
