package otu

import (
	"context"
	"io"
	"os"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// openInput opens path for reading, transparently decompressing gzip and
// bzip2 files. The returned closer must be called once reading is done.
func openInput(ctx context.Context, path string) (io.Reader, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	var r io.Reader = in.Reader(ctx)
	var u io.ReadCloser
	if u = compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	closer := func() error {
		once := errors.Once{}
		if u != nil {
			once.Set(u.Close())
		}
		once.Set(in.Close(ctx))
		return once.Err()
	}
	return r, closer, nil
}

// createOutput creates path for writing. The returned closer must be called
// exactly once; it reports the first error of the close.
func createOutput(ctx context.Context, path string) (io.Writer, func() error, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "create", path)
	}
	return out.Writer(ctx), func() error { return out.Close(ctx) }, nil
}

// isLocal reports whether path is a plain filesystem path, as opposed to a
// URL handled by a registered file.Implementation.
func isLocal(path string) bool {
	scheme, _, err := file.ParsePath(path)
	return err == nil && scheme == ""
}

// exists reports whether a local file exists.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// copyFile copies src to dst. Either may be a non-local path.
func copyFile(ctx context.Context, dst, src string) (err error) {
	in, err := file.Open(ctx, src)
	if err != nil {
		return errors.E(err, "open", src)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	w, closer, err := createOutput(ctx, dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, in.Reader(ctx)); err != nil {
		_ = closer()
		return errors.E(err, "copy", src, "to", dst)
	}
	return closer()
}

// fileSize returns the size of path in bytes.
func fileSize(ctx context.Context, path string) (int64, error) {
	info, err := file.Stat(ctx, path)
	if err != nil {
		return 0, errors.E(err, "stat", path)
	}
	return info.Size(), nil
}

// gzipFile replaces a local file with its gzip-compressed copy, path+".gz".
func gzipFile(ctx context.Context, path string) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	w, closer, err := createOutput(ctx, path+".gz")
	if err != nil {
		_ = in.Close(ctx)
		return err
	}
	gz := gzip.NewWriter(w)
	once := errors.Once{}
	if _, err := io.Copy(gz, in.Reader(ctx)); err != nil {
		once.Set(errors.E(err, "compress", path))
	}
	once.Set(gz.Close())
	once.Set(closer())
	once.Set(in.Close(ctx))
	if err := once.Err(); err != nil {
		return err
	}
	return os.Remove(path)
}
