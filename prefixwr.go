package kissev

import (
	"bytes"
	"io"
)

// prefixWriter starts every line written to w with prefix.
type prefixWriter struct {
	w      io.Writer
	prefix []byte
	inLine bool // not at start of line
}

func newPrefixWriterString(w io.Writer, prefix string) *prefixWriter {
	return &prefixWriter{w: w, prefix: []byte(prefix)}
}

func (pw *prefixWriter) Write(p []byte) (n int, err error) {
	for len(p) > 0 {
		if !pw.inLine {
			if _, err := pw.w.Write(pw.prefix); err != nil {
				return n, err
			}
			pw.inLine = true
		}
		nlIdx := bytes.IndexByte(p, '\n')
		if nlIdx < 0 {
			m, err := pw.w.Write(p)
			return n + m, err
		}
		nlIdx++
		m, err := pw.w.Write(p[:nlIdx])
		n += m
		if err != nil {
			return n, err
		}
		pw.inLine = false
		p = p[nlIdx:]
	}
	return n, nil
}
