package otu

import (
	"os"
	"path/filepath"

	"github.com/grailbio/base/log"
)

// BuiltinRefs names the reference databases shipped under Opts.DBDir.
var BuiltinRefs = []string{"ITS", "16S", "LSU", "COI"}

// chimeraMinDiv is the minimum divergence passed to uchime_ref.
const chimeraMinDiv = 1.0

// builtinRefPath returns the database path for a built-in selector.
func builtinRefPath(dbDir, name string) string {
	return filepath.Join(dbDir, name+".extracted.fa")
}

// resolveChimeraRef maps a chimera reference selector to a database path.
// It returns false, after logging why, when the database is unusable; the
// chimera stage is then skipped.
func resolveChimeraRef(selector, dbDir string) (string, bool) {
	for _, name := range BuiltinRefs {
		if selector != name {
			continue
		}
		path := builtinRefPath(dbDir, name)
		if !exists(path) {
			log.Error.Printf("Database not properly configured (%s not found), run `ufits install` to setup DB, skipping chimera filtering", path)
			return "", false
		}
		return path, true
	}
	if info, err := os.Stat(selector); err != nil || info.IsDir() {
		log.Error.Printf("%s is not a valid file, skipping reference chimera filtering", selector)
		return "", false
	}
	path, err := filepath.Abs(selector)
	if err != nil {
		log.Error.Printf("%s: %v, skipping reference chimera filtering", selector, err)
		return "", false
	}
	return path, true
}
