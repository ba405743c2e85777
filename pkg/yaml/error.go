package yaml

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

// ErrorWrapper attaches shared context (source bytes, display options) to
// [Error] values produced while handling one document.
type ErrorWrapper struct {
	Opts []ErrorOpt
}

func NewErrorWrapper(opts ...ErrorOpt) *ErrorWrapper {
	return &ErrorWrapper{
		Opts: opts,
	}
}

// Wrap applies the wrapper's options to err if it is an [Error].
// Other errors are returned unmodified.
func (ew *ErrorWrapper) Wrap(err error, opts ...ErrorOpt) error {
	if err == nil {
		return nil
	}

	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range ew.Opts {
			opt(yamlErr)
		}

		for _, opt := range opts {
			opt(yamlErr)
		}

		return yamlErr
	}

	return err
}

// Error is a YAML error annotated with the position it occurred at, either
// via a [*yaml.Path] or the offending [*token.Token].
type Error struct {
	Err         error
	Path        *yaml.Path
	Token       *token.Token
	Source      []byte
	SourceLines int // Number of lines to show around the error in the source.
}

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{
		Err:         err,
		SourceLines: 4,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

type ErrorOpt func(e *Error)

func WithSourceLines(lines int) ErrorOpt {
	return func(e *Error) {
		e.SourceLines = lines
	}
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(source []byte) ErrorOpt {
	return func(e *Error) {
		e.Source = source
	}
}

func (e Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if (e.Path == nil && e.Token == nil) || len(e.Source) == 0 {
		if e.Path != nil {
			return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
		}

		return e.Err.Error()
	}

	errMsg, srcErr := e.annotateSource()
	if srcErr != nil {
		slog.Warn("failed to annotate source with error",
			slog.Any("error", srcErr),
		)
		if e.Path != nil {
			return fmt.Sprintf("error at %s: %v", e.Path.String(), e.Err)
		}

		return e.Err.Error()
	}

	return errMsg
}

func (e Error) Unwrap() error {
	return e.Err
}

// annotateSource renders the source lines around the error position with a
// marker, using the goccy printer.
func (e Error) annotateSource() (string, error) {
	tk := e.Token
	if tk == nil {
		var err error

		tk, err = getTokenFromPath(e.Source, e.Path)
		if err != nil {
			return "", fmt.Errorf("get token from path: %w", err)
		}
	}

	errMsg := fmt.Sprintf("[%d:%d] %v:", tk.Position.Line, tk.Position.Column, e.Err)

	var pp printer.Printer

	errSource := pp.PrintErrorToken(tk, false)

	return fmt.Sprintf("%s\n%s", errMsg, errSource), nil
}

// getTokenFromPath locates the token a path points at. It prefers the KEY
// token over the VALUE node so the annotation points at the property name.
func getTokenFromPath(source []byte, path *yaml.Path) (*token.Token, error) {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil, fmt.Errorf("parse source bytes into ast.File: %w", err)
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil, fmt.Errorf("filter from ast.File by YAML path: %w", err)
	}

	return node.GetToken(), nil
}
