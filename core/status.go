package core

import (
	"errors"
	"fmt"
	"strings"
)

// StatusCode is the outcome class of one read or write invocation.
type StatusCode int

const (
	StatusSuccess StatusCode = iota
	StatusSettingError
	StatusSystemError
	StatusDataCollectionError
	StatusFileError
)

func (c StatusCode) String() string {
	switch c {
	case StatusSuccess:
		return "success"
	case StatusSettingError:
		return "setting-error"
	case StatusSystemError:
		return "system-error"
	case StatusDataCollectionError:
		return "data-collection-error"
	case StatusFileError:
		return "file-error"
	default:
		return fmt.Sprintf("status(%d)", int(c))
	}
}

var (
	// ErrEmptyStack is returned by Pop/Peek on a stack without frames.
	ErrEmptyStack = errors.New("property path stack is empty")
	// ErrInvalidRoot is returned by Set when no base frame was pushed.
	ErrInvalidRoot = errors.New("property path stack has no root object")

	errOutOfSheet = errors.New("position lies outside the sheet")
)

// FormatError reports a malformed cell reference or range.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid cell reference %q: %v", e.Input, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SettingError reports a misconfigured definition. It aborts the sheet.
type SettingError struct {
	Block string
	Msg   string
	Err   error
}

func (e *SettingError) Error() string {
	msg := e.Msg
	if e.Block != "" {
		msg = fmt.Sprintf("block %s: %s", e.Block, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SettingError) Unwrap() error { return e.Err }

// SystemError reports an unexpected runtime failure. It aborts the sheet.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// DataCollectionError reports one cell whose value could not be bound.
// It never aborts a read.
type DataCollectionError struct {
	SheetIndex int
	Ref        string
	Raw        any
	Cell       *Cell
	Err        error
}

func (e *DataCollectionError) Error() string {
	name := ""
	if e.Cell != nil {
		name = e.Cell.DataName
	}
	return fmt.Sprintf("sheet %d cell %s (%s) value %v: %v", e.SheetIndex, e.Ref, name, e.Raw, e.Err)
}

func (e *DataCollectionError) Unwrap() error { return e.Err }

// UnsupportedTypeError reports a property type without a registered convertor.
type UnsupportedTypeError struct {
	SheetIndex int
	Ref        string
	Raw        any
	Cell       *Cell
	Type       string
}

func (e *UnsupportedTypeError) Error() string {
	name := ""
	if e.Cell != nil {
		name = e.Cell.DataName
	}
	return fmt.Sprintf("sheet %d cell %s (%s) value %v: no convertor for type %s", e.SheetIndex, e.Ref, name, e.Raw, e.Type)
}

// ReadStatus is the outcome of one read invocation.
type ReadStatus struct {
	Code    StatusCode
	Message string
	// Errors holds every per-cell data error, in the order they occurred.
	Errors []error
}

// OK reports whether the read completed without any error.
func (s *ReadStatus) OK() bool { return s.Code == StatusSuccess }

// Err flattens a non-success status into a single error, or nil.
func (s *ReadStatus) Err() error {
	return statusErr(s.Code, s.Message, s.Errors)
}

func (s *ReadStatus) addDataError(err error) {
	s.Errors = append(s.Errors, err)
	if s.Code == StatusSuccess {
		s.Code = StatusDataCollectionError
		s.Message = "one or more cells could not be collected"
	}
}

func (s *ReadStatus) fail(code StatusCode, err error) {
	s.Code = code
	s.Message = err.Error()
}

// WriteStatus is the outcome of one write invocation.
type WriteStatus struct {
	Code    StatusCode
	Message string
	Errors  []error
}

// OK reports whether the write completed without any error.
func (s *WriteStatus) OK() bool { return s.Code == StatusSuccess }

// Err flattens a non-success status into a single error, or nil.
func (s *WriteStatus) Err() error {
	return statusErr(s.Code, s.Message, s.Errors)
}

func (s *WriteStatus) addDataError(err error) {
	s.Errors = append(s.Errors, err)
	if s.Code == StatusSuccess {
		s.Code = StatusDataCollectionError
		s.Message = "one or more cells could not be written"
	}
}

func (s *WriteStatus) fail(code StatusCode, err error) {
	s.Code = code
	s.Message = err.Error()
}

// classify maps a block-level error onto its terminal status code.
func classify(err error) StatusCode {
	var setting *SettingError
	var format *FormatError
	switch {
	case errors.As(err, &setting), errors.As(err, &format):
		return StatusSettingError
	default:
		return StatusSystemError
	}
}

func statusErr(code StatusCode, msg string, errs []error) error {
	if code == StatusSuccess {
		return nil
	}
	if len(errs) == 0 {
		return fmt.Errorf("%s: %s", code, msg)
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, e.Error())
	}
	return fmt.Errorf("%s: %s\n%s", code, msg, strings.Join(lines, "\n"))
}
