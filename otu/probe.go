package otu

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/lookpath"
)

// Mode selects which tool family drives the delegable stages.
type Mode int

const (
	// Fallback runs quality filtering and dereplication in-process and
	// hands chimera filtering and read mapping to usearch.
	Fallback Mode = iota
	// Accelerated hands filtering, dereplication, chimera filtering and read
	// mapping to vsearch.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case Fallback:
		return "fallback"
	case Accelerated:
		return "accelerated"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Version is a dotted numeric tool version.
type Version []int

// MinVsearchVersion is the oldest vsearch accepted as an accelerator.
var MinVsearchVersion = Version{1, 9, 1}

var versionRE = regexp.MustCompile(`v(\d+(?:\.\d+)*)`)

// ParseVersion extracts the first "vX.Y.Z" token from a tool banner such as
// "vsearch v2.15.0_linux_x86_64, 15.6GB RAM, 8 cores".
func ParseVersion(banner string) (Version, bool) {
	m := versionRE.FindStringSubmatch(banner)
	if m == nil {
		return nil, false
	}
	var v Version
	for _, part := range strings.Split(m[1], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, false
		}
		v = append(v, n)
	}
	return v, true
}

// Less reports whether v is older than w. Missing components count as 0.
func (v Version) Less(w Version) bool {
	for i := 0; i < len(v) || i < len(w); i++ {
		var a, b int
		if i < len(v) {
			a = v[i]
		}
		if i < len(w) {
			b = w[i]
		}
		if a != b {
			return a < b
		}
	}
	return false
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Environment is the outcome of probing the host. It is computed once per
// run and passed to every delegable stage.
type Environment struct {
	Mode Mode
	// Usearch is the resolved clustering engine executable.
	Usearch        string
	UsearchVersion Version
	// Vsearch is the resolved accelerator; empty in Fallback mode.
	Vsearch        string
	VsearchVersion Version
	// Vars is the environment the probe searched and that child processes
	// receive.
	Vars map[string]string
}

// Probe locates the clustering engine and the optional accelerator named in
// opts, using vars["PATH"] for lookups and runner for version queries. A
// missing engine is an error; a missing or outdated accelerator selects
// Fallback mode.
func Probe(ctx context.Context, opts Opts, vars map[string]string, runner Runner) (Environment, error) {
	env := Environment{Mode: Fallback, Vars: vars}
	usearch, err := lookpath.Look(vars, opts.Usearch)
	if err != nil {
		return env, errors.E(errors.NotExist, err,
			fmt.Sprintf("%s is required for OTU clustering; install USEARCH from http://drive5.com/usearch", opts.Usearch))
	}
	env.Usearch = usearch
	out, err := versionBanner(ctx, runner, NewUsearch(usearch, 0))
	if err != nil {
		return env, errors.E(err, "query usearch version")
	}
	v, ok := ParseVersion(string(out))
	if !ok {
		return env, errors.E(errors.Invalid, fmt.Sprintf("unrecognized usearch version banner %q", strings.TrimSpace(string(out))))
	}
	env.UsearchVersion = v
	log.Printf("USEARCH v%s", v)

	if opts.Vsearch == "" {
		log.Printf("VSEARCH disabled, using native filtering")
		return env, nil
	}
	vsearch, err := lookpath.Look(vars, opts.Vsearch)
	if err != nil {
		log.Printf("VSEARCH not installed, using native filtering")
		return env, nil
	}
	out, err = versionBanner(ctx, runner, NewVsearch(vsearch, 0))
	if err != nil {
		log.Error.Printf("VSEARCH found at %s but --version failed, using native filtering: %v", vsearch, err)
		return env, nil
	}
	if v, ok = ParseVersion(string(out)); !ok {
		log.Error.Printf("unrecognized VSEARCH version banner %q, using native filtering", strings.TrimSpace(string(out)))
		return env, nil
	}
	env.VsearchVersion = v
	if v.Less(MinVsearchVersion) {
		log.Printf("VSEARCH v%s detected, need version at least v%s, using native filtering", v, MinVsearchVersion)
		return env, nil
	}
	env.Vsearch = vsearch
	env.Mode = Accelerated
	log.Printf("VSEARCH v%s", v)
	return env, nil
}

func versionBanner(ctx context.Context, runner Runner, b Backend) ([]byte, error) {
	c, err := b.Render(VersionCmd{})
	if err != nil {
		return nil, err
	}
	return runner.Output(ctx, c)
}
