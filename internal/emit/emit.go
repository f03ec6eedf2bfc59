// Package emit renders decoded entries to the console, JSON files and
// ClickHouse.
package emit

import (
	"errors"

	"github.com/danmuck/litelog/internal/entry"
)

type Emitter interface {
	Emit(e entry.Entry) error
	Close() error
}

// Multi fans every entry out to all emitters in order. Emit stops at the
// first failure; Close closes everything.
type Multi []Emitter

func (m Multi) Emit(e entry.Entry) error {
	for _, em := range m {
		if err := em.Emit(e); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, em := range m {
		if err := em.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
