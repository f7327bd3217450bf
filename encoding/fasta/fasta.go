// Package fasta contains a streaming reader and writer for FASTA files, plus
// helpers for the usearch/vsearch ";size=N;" abundance annotation. FASTA files
// consist of a number of named sequences that may be interrupted by newlines.
// For example:
//
// >Uniq1;size=12;
// ACGTAC
// GAGGAC
// GCG
// >Uniq2;size=3;
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appearing after a space is ignored by
// Name, but preserved in Header.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const maxLineSize = 64 << 20

// Record is one FASTA entry.
type Record struct {
	// Header is the header line without the leading '>'.
	Header string
	// Seq is the sequence with line breaks removed.
	Seq string
}

// Name returns the header up to the first space.
func (r *Record) Name() string {
	if i := strings.IndexByte(r.Header, ' '); i >= 0 {
		return r.Header[:i]
	}
	return r.Header
}

// Scanner reads FASTA records one at a time. It is not threadsafe.
type Scanner struct {
	b       *bufio.Scanner
	pending string // header of the next record, if already consumed.
	started bool
	done    bool
	err     error
	line    int
}

// NewScanner creates a Scanner that reads FASTA data from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineSize)
	return &Scanner{b: b}
}

// Scan reads the next record into rec. It returns false at the end of input
// or on error; check Err afterwards.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil || s.done {
		return false
	}
	if !s.started {
		s.started = true
		for {
			if !s.b.Scan() {
				s.done = true
				s.err = errors.Wrap(s.b.Err(), "couldn't read FASTA data")
				return false
			}
			s.line++
			line := strings.TrimRight(s.b.Text(), "\r")
			if len(line) == 0 {
				continue
			}
			if line[0] != '>' {
				s.err = errors.Errorf("malformed FASTA file: line %d: sequence data before first header", s.line)
				return false
			}
			s.pending = line[1:]
			break
		}
	}
	if s.pending == "" && s.done {
		return false
	}
	rec.Header = s.pending
	var seq strings.Builder
	for {
		if !s.b.Scan() {
			s.done = true
			if err := s.b.Err(); err != nil {
				s.err = errors.Wrap(err, "couldn't read FASTA data")
				return false
			}
			break
		}
		s.line++
		line := strings.TrimRight(s.b.Text(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			s.pending = line[1:]
			rec.Seq = seq.String()
			return true
		}
		seq.WriteString(line)
	}
	s.pending = ""
	rec.Seq = seq.String()
	return true
}

// Err returns the first error encountered by Scan, if any.
func (s *Scanner) Err() error { return s.err }

// Writer writes FASTA records with the sequence on a single line. Flush must
// be called once all records have been written.
type Writer struct {
	w   *bufio.Writer
	err error
	n   int
}

// NewWriter creates a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 1<<20)}
}

// Write appends one record.
func (w *Writer) Write(header, seq string) error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.WriteByte('>'); err != nil {
		w.err = err
		return err
	}
	for _, s := range []string{header, "\n", seq, "\n"} {
		if _, err := w.w.WriteString(s); err != nil {
			w.err = err
			return err
		}
	}
	w.n++
	return nil
}

// N returns the number of records written so far.
func (w *Writer) N() int { return w.n }

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Count returns the number of records in r, i.e., the number of header lines.
func Count(r io.Reader) (int, error) {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineSize)
	n := 0
	for b.Scan() {
		if line := b.Bytes(); len(line) > 0 && line[0] == '>' {
			n++
		}
	}
	return n, errors.Wrap(b.Err(), "couldn't read FASTA data")
}
