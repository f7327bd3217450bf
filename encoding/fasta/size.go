package fasta

import (
	"strconv"
	"strings"
)

const sizeKey = "size="

// ParseSize extracts N from a ";size=N" annotation in a label. Both the
// usearch (";size=N;") and vsearch (";size=N") spellings are accepted.
func ParseSize(label string) (int, bool) {
	for _, field := range strings.Split(label, ";") {
		if strings.HasPrefix(field, sizeKey) {
			n, err := strconv.Atoi(field[len(sizeKey):])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

// StripAnnotations returns the label up to the first ';'. For example,
// "OTU12;size=40;" becomes "OTU12".
func StripAnnotations(label string) string {
	if i := strings.IndexByte(label, ';'); i >= 0 {
		return label[:i]
	}
	return label
}

// WithSize returns label with its size annotation set to n, in the
// usearch spelling.
func WithSize(label string, n int) string {
	fields := strings.Split(label, ";")
	out := fields[:0]
	for _, field := range fields {
		if field == "" || strings.HasPrefix(field, sizeKey) {
			continue
		}
		out = append(out, field)
	}
	return strings.Join(out, ";") + ";" + sizeKey + strconv.Itoa(n) + ";"
}
