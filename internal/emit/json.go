package emit

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/danmuck/litelog/internal/entry"
	"github.com/valyala/fastjson"
)

// JSON writes entries either as one JSON array document or as JSON lines.
type JSON struct {
	w      *bufio.Writer
	closer io.Closer
	lines  bool
	n      int
	arena  fastjson.Arena
	buf    []byte
}

func NewJSON(w io.Writer, lines bool) *JSON {
	return &JSON{w: bufio.NewWriter(w), lines: lines}
}

// CreateJSON creates path, and its parent directories, for writing.
func CreateJSON(path string, lines bool) (*JSON, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("json output (%s): %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("json output (%s): %w", path, err)
	}
	j := NewJSON(f, lines)
	j.closer = f
	return j, nil
}

func (j *JSON) Emit(e entry.Entry) error {
	j.arena.Reset()
	j.buf = j.buf[:0]
	switch {
	case j.lines:
	case j.n == 0:
		j.buf = append(j.buf, "[\n  "...)
	default:
		j.buf = append(j.buf, ",\n  "...)
	}
	j.buf = e.AppendJSON(j.buf, &j.arena)
	if j.lines {
		j.buf = append(j.buf, '\n')
	}
	j.n++
	_, err := j.w.Write(j.buf)
	return err
}

func (j *JSON) Close() error {
	var err error
	if !j.lines {
		if j.n == 0 {
			_, err = j.w.WriteString("[]\n")
		} else {
			_, err = j.w.WriteString("\n]\n")
		}
	}
	if ferr := j.w.Flush(); err == nil {
		err = ferr
	}
	if j.closer != nil {
		if cerr := j.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
