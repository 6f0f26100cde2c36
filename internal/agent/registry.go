package agent

import (
	"errors"
	"fmt"
)

// Built-in provider names accepted in session files and on the command line.
const (
	NameRandom = "random"
	NameFirst  = "first"
)

// ErrUnknownProvider is returned for an unrecognized provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// Names lists the built-in provider names.
func Names() []string {
	return []string{NameRandom, NameFirst}
}

// New builds a built-in provider for one seat.
func New(name string, seed int64, seat int) (Provider, error) {
	switch name {
	case NameRandom:
		return NewRandom(seed, seat), nil
	case NameFirst:
		return FirstLegal{}, nil
	}
	return nil, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownProvider, name, Names())
}
