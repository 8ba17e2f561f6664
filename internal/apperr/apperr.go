// Package apperr classifies the failures of a run into the three classes the
// process reports through its exit status: usage, configuration/data and runtime.
package apperr

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Class is the failure class of an error.
type Class int

const (
	ClassNone Class = iota
	ClassUsage
	ClassConfig
	ClassRuntime
)

const (
	TextCodeUsage   = "USAGE_ERROR"
	TextCodeConfig  = "CONFIG_ERROR"
	TextCodeRuntime = "RUNTIME_ERROR"
)

func (c Class) String() string {
	switch c {
	case ClassUsage:
		return "usage"
	case ClassConfig:
		return "config"
	case ClassRuntime:
		return "runtime"
	default:
		return "none"
	}
}

// Usage reports a bad invocation (invalid zone, non-positive limits...).
func Usage(format string, args ...any) *goerrors.Error {
	return newError(ClassUsage, fmt.Sprintf(format, args...))
}

// Config reports malformed catalog data or templates.
func Config(format string, args ...any) *goerrors.Error {
	return newError(ClassConfig, fmt.Sprintf(format, args...))
}

// Runtime reports I/O and network failures.
func Runtime(format string, args ...any) *goerrors.Error {
	return newError(ClassRuntime, fmt.Sprintf(format, args...))
}

// WrapConfig attaches the configuration class to source.
func WrapConfig(source error, format string, args ...any) *goerrors.Error {
	return wrapError(ClassConfig, source, fmt.Sprintf(format, args...))
}

// WrapRuntime attaches the runtime class to source.
func WrapRuntime(source error, format string, args ...any) *goerrors.Error {
	return wrapError(ClassRuntime, source, fmt.Sprintf(format, args...))
}

// WrapUsage attaches the usage class to source.
func WrapUsage(source error, format string, args ...any) *goerrors.Error {
	return wrapError(ClassUsage, source, fmt.Sprintf(format, args...))
}

// Classify returns the class of err. Unclassified errors, including context
// cancellation, count as runtime failures.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		switch rich.TextCode {
		case TextCodeUsage:
			return ClassUsage
		case TextCodeConfig:
			return ClassConfig
		case TextCodeRuntime:
			return ClassRuntime
		}
		switch rich.Category {
		case goerrors.CategoryBadInput:
			return ClassUsage
		case goerrors.CategoryValidation:
			return ClassConfig
		}
	}
	return ClassRuntime
}

func newError(class Class, message string) *goerrors.Error {
	return goerrors.New(message, category(class)).
		WithTextCode(textCode(class))
}

func wrapError(class Class, source error, message string) *goerrors.Error {
	if source == nil {
		return newError(class, message)
	}
	return goerrors.Wrap(source, category(class), message).
		WithTextCode(textCode(class))
}

func category(class Class) goerrors.Category {
	switch class {
	case ClassUsage:
		return goerrors.CategoryBadInput
	case ClassConfig:
		return goerrors.CategoryValidation
	default:
		return goerrors.CategoryExternal
	}
}

func textCode(class Class) string {
	switch class {
	case ClassUsage:
		return TextCodeUsage
	case ClassConfig:
		return TextCodeConfig
	default:
		return TextCodeRuntime
	}
}

// Message renders err for humans: each wrapped message once, joined by ": ",
// without the category codes carried by Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	rich, ok := err.(*goerrors.Error)
	if !ok {
		return err.Error()
	}
	if rich.Source == nil {
		return rich.Message
	}
	return rich.Message + ": " + Message(rich.Source)
}
