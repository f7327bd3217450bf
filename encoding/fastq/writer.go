package fastq

import (
	"bufio"
	"io"
)

// Writer is a buffered FASTQ file writer. Flush must be called once all reads
// have been written.
type Writer struct {
	w   *bufio.Writer
	err error
	n   int
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<20)}
}

// Write writes the read r in FASTQ format.
// An error is returned if the write failed.
func (w *Writer) Write(r *Read) error {
	w.writeln(r.ID)
	w.writeln(r.Seq)
	if r.Unk == "" {
		w.writeln("+")
	} else {
		w.writeln(r.Unk)
	}
	w.writeln(r.Qual)
	if w.err == nil {
		w.n++
	}
	return w.err
}

// N returns the number of reads written so far.
func (w *Writer) N() int { return w.n }

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	if _, w.err = w.w.WriteString(line); w.err == nil {
		w.err = w.w.WriteByte('\n')
	}
}
