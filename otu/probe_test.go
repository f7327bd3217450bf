package otu

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestParseVersion(t *testing.T) {
	for _, test := range []struct {
		banner string
		want   Version
	}{
		{"vsearch v2.15.0_linux_x86_64, 15.6GB RAM, 8 cores", Version{2, 15, 0}},
		{"usearch v9.2.64_i86linux32", Version{9, 2, 64}},
		{"vsearch v1.9.1", Version{1, 9, 1}},
		{"tool v10", Version{10}},
	} {
		v, ok := ParseVersion(test.banner)
		expect.True(t, ok, test.banner)
		expect.EQ(t, v, test.want)
	}
	_, ok := ParseVersion("command not found")
	expect.False(t, ok)
}

func TestVersionLess(t *testing.T) {
	expect.True(t, Version{1, 9, 0}.Less(MinVsearchVersion))
	expect.True(t, Version{1, 8, 9}.Less(MinVsearchVersion))
	expect.False(t, Version{1, 9, 1}.Less(MinVsearchVersion))
	expect.False(t, Version{1, 10}.Less(MinVsearchVersion))
	expect.False(t, Version{2}.Less(MinVsearchVersion))
	expect.True(t, Version{1, 9}.Less(MinVsearchVersion))
	expect.EQ(t, Version{2, 15, 0}.String(), "2.15.0")
}

// probeDir creates an executable file per name in a temporary PATH
// directory.
func probeDir(t *testing.T, names ...string) (map[string]string, func()) {
	dir, cleanup := testutil.TempDir(t, "", "path")
	for _, name := range names {
		assert.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0755))
	}
	return map[string]string{"PATH": dir}, cleanup
}

func TestProbe(t *testing.T) {
	ctx := vcontext.Background()
	vars, cleanup := probeDir(t, "usearch9", "vsearch")
	defer cleanup()
	dir := vars["PATH"]

	runner := newFakeRunner()
	runner.banners = map[string]string{
		filepath.Join(dir, "usearch9"): "usearch v9.2.64_i86linux32",
		filepath.Join(dir, "vsearch"):  "vsearch v2.15.0_linux_x86_64",
	}
	env, err := Probe(ctx, DefaultOpts, vars, runner)
	assert.NoError(t, err)
	expect.EQ(t, env.Mode, Accelerated)
	expect.EQ(t, env.Usearch, filepath.Join(dir, "usearch9"))
	expect.EQ(t, env.Vsearch, filepath.Join(dir, "vsearch"))
	expect.EQ(t, env.VsearchVersion, Version{2, 15, 0})
	expect.EQ(t, env.UsearchVersion, Version{9, 2, 64})

	// Too old.
	runner.banners[filepath.Join(dir, "vsearch")] = "vsearch v1.9.0_linux_x86_64"
	env, err = Probe(ctx, DefaultOpts, vars, runner)
	assert.NoError(t, err)
	expect.EQ(t, env.Mode, Fallback)
	expect.EQ(t, env.Vsearch, "")

	// Broken.
	delete(runner.banners, filepath.Join(dir, "vsearch"))
	env, err = Probe(ctx, DefaultOpts, vars, runner)
	assert.NoError(t, err)
	expect.EQ(t, env.Mode, Fallback)

	// Disabled.
	opts := DefaultOpts
	opts.Vsearch = ""
	env, err = Probe(ctx, opts, vars, runner)
	assert.NoError(t, err)
	expect.EQ(t, env.Mode, Fallback)
}

func TestProbeNoVsearch(t *testing.T) {
	vars, cleanup := probeDir(t, "usearch9")
	defer cleanup()
	runner := newFakeRunner()
	runner.banners = map[string]string{filepath.Join(vars["PATH"], "usearch9"): "usearch v9.2.64"}
	env, err := Probe(vcontext.Background(), DefaultOpts, vars, runner)
	assert.NoError(t, err)
	expect.EQ(t, env.Mode, Fallback)
	expect.EQ(t, env.Mode.String(), "fallback")
	for _, c := range runner.commands {
		expect.NEQ(t, filepath.Base(c.Path), "vsearch")
	}
}

func TestProbeNoUsearch(t *testing.T) {
	vars, cleanup := probeDir(t, "vsearch")
	defer cleanup()
	_, err := Probe(vcontext.Background(), DefaultOpts, vars, newFakeRunner())
	expect.True(t, errors.Is(errors.NotExist, err))
	expect.HasSubstr(t, err.Error(), "usearch9")
}
