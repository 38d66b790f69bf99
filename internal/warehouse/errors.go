package warehouse

import (
	"errors"
	"fmt"
)

// Kind classifies a warehouse failure.
type Kind string

const (
	// KindConnection means the handle could not be created.
	KindConnection Kind = "connection"
	// KindQuery means the table read or its conversion failed.
	KindQuery Kind = "query"
)

var (
	// ErrProfileNotFound is returned when the named connection profile is absent.
	ErrProfileNotFound = errors.New("connection profile not found")
	// ErrInvalidTableRef is returned for table names that are not three plain identifiers.
	ErrInvalidTableRef = errors.New("invalid table reference")

	errNilHandle = errors.New("connector returned a nil handle")
)

// Error is a classified warehouse failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func connectionError(op string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

func queryError(op string, err error) error {
	return &Error{Kind: KindQuery, Op: op, Err: err}
}

// KindOf returns the kind of a warehouse error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind, true
	}
	return "", false
}
