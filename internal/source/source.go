// Package source opens binary log streams. Archived logs are often zstd
// compressed; they are detected by magic number and decompressed on the fly.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Stdin is the path that selects standard input.
const Stdin = "-"

type stream struct {
	io.Reader
	closers []func() error
}

func (s *stream) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path (or stdin for "-") and wraps it like Wrap.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return Wrap(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source open failed (%s): %w", path, err)
	}
	rc, err := Wrap(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("source open failed (%s): %w", path, err)
	}
	s := rc.(*stream)
	s.closers = append([]func() error{f.Close}, s.closers...)
	return s, nil
}

// Wrap returns r unchanged unless it starts with a zstd frame, in which case
// the returned reader yields the decompressed bytes. Closing the result does
// not close r.
func Wrap(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	if !bytes.Equal(head, zstdMagic) {
		return &stream{Reader: br}, nil
	}
	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("source: zstd: %w", err)
	}
	return &stream{
		Reader: dec,
		closers: []func() error{func() error {
			dec.Close()
			return nil
		}},
	}, nil
}
