package otu

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// manifestName is the file, inside the temporary directory, that records
// every artifact produced by the run.
const manifestName = "manifest.tsv"

// manifestEntry describes one produced artifact.
type manifestEntry struct {
	Stage    string
	Artifact string
	Bytes    int64
	Digest   uint64
}

// manifest accumulates artifact digests as stages complete.
type manifest struct {
	entries []manifestEntry
}

// add digests the outputs of a completed stage.
func (m *manifest) add(ctx context.Context, stage string, paths []string) error {
	for _, path := range paths {
		e, err := digest(ctx, path)
		if err != nil {
			return err
		}
		e.Stage = stage
		m.entries = append(m.entries, e)
	}
	return nil
}

func digest(ctx context.Context, path string) (manifestEntry, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return manifestEntry{}, errors.E(err, "open", path)
	}
	h := seahash.New()
	n, err := io.Copy(h, f.Reader(ctx))
	once := errors.Once{}
	if err != nil {
		once.Set(errors.E(err, "read", path))
	}
	once.Set(f.Close(ctx))
	return manifestEntry{Artifact: filepath.Base(path), Bytes: n, Digest: h.Sum64()}, once.Err()
}

// write stores the manifest as dir/manifest.tsv.
func (m *manifest) write(ctx context.Context, dir string) error {
	w, closer, err := createOutput(ctx, filepath.Join(dir, manifestName))
	if err != nil {
		return err
	}
	out := tsv.NewWriter(w)
	out.WriteString("stage\tartifact\tbytes\tseahash")
	once := errors.Once{}
	once.Set(out.EndLine())
	for _, e := range m.entries {
		out.WriteString(e.Stage)
		out.WriteString(e.Artifact)
		out.WriteInt64(e.Bytes)
		out.WriteString(fmt.Sprintf("%016x", e.Digest))
		once.Set(out.EndLine())
	}
	once.Set(out.Flush())
	once.Set(closer())
	return once.Err()
}
