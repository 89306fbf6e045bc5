package domain

import (
	"errors"
	"strings"
)

// Kind classifies a deployment failure.
type Kind string

const (
	KindConfig     Kind = "configuration"
	KindFilesystem Kind = "filesystem"
	KindRemote     Kind = "remote"
)

// Error carries the failure kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func ConfigError(op string, err error) error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

func FilesystemError(op string, err error) error {
	return &Error{Kind: KindFilesystem, Op: op, Err: err}
}

func RemoteError(op string, err error) error {
	return &Error{Kind: KindRemote, Op: op, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind, true
	}
	return "", false
}

// ValidationError aggregates parameter validation issues.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	if strings.TrimSpace(issue) == "" {
		return
	}
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}
