package core

import (
	"fmt"
	"strings"
)

// TopToken names the current-object register inside a path ("top", "top.name").
const TopToken = "top"

// ParamPrefix marks a path read from the context map ("$region").
const ParamPrefix = "$"

// PathStack evaluates dotted property paths against a stack of objects.
// Reads try the most recently pushed frame first; writes always go to the
// base frame. A PathStack belongs to a single invocation and is not safe for
// concurrent use.
type PathStack struct {
	frames  []any // frames[0] is the base frame
	current any
	// Context is consulted when no frame evaluates a path, or directly
	// through ParamPrefix.
	Context map[string]any

	vivifier *Vivifier
}

// NewPathStack creates a stack seeded with root as its base frame. A nil
// root gives an empty stack.
func NewPathStack(root any, vivifier *Vivifier) *PathStack {
	if vivifier == nil {
		vivifier = NewVivifier()
	}
	s := &PathStack{Context: make(map[string]any), vivifier: vivifier}
	if root != nil {
		s.Push(root)
	}
	return s
}

func (s *PathStack) Push(obj any) {
	s.frames = append(s.frames, obj)
}

func (s *PathStack) Pop() (any, error) {
	if len(s.frames) == 0 {
		return nil, ErrEmptyStack
	}
	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return top, nil
}

func (s *PathStack) Peek() (any, error) {
	if len(s.frames) == 0 {
		return nil, ErrEmptyStack
	}
	return s.frames[len(s.frames)-1], nil
}

// Fork returns a stack sharing s's frames and context with obj pushed on
// top and loaded as the current object. Writes on the fork still go to the
// base frame.
func (s *PathStack) Fork(obj any) *PathStack {
	frames := make([]any, len(s.frames), len(s.frames)+1)
	copy(frames, s.frames)
	return &PathStack{
		frames:   append(frames, obj),
		current:  obj,
		Context:  s.Context,
		vivifier: s.vivifier,
	}
}

// Root returns the base frame.
func (s *PathStack) Root() (any, error) {
	if len(s.frames) == 0 {
		return nil, ErrInvalidRoot
	}
	return s.frames[0], nil
}

func (s *PathStack) Len() int { return len(s.frames) }

// SetCurrent loads the current-object register read through "top".
func (s *PathStack) SetCurrent(obj any) { s.current = obj }

func (s *PathStack) Current() any { return s.current }

// Get evaluates path and returns the result of the first frame that
// evaluates it without error, falling back to the context map, or nil.
func (s *PathStack) Get(path string) any {
	v, _ := s.Lookup(path)
	return v
}

// Lookup is Get with the failure reported: the error is non-nil when no
// frame could evaluate path and the context map does not hold it. A frame
// that evaluates path to nil ends the search. "$name" reads the context map
// only.
func (s *PathStack) Lookup(path string) (any, error) {
	if rest, ok := topPath(path); ok {
		if rest == "" {
			return s.current, nil
		}
		if s.current == nil {
			return nil, fmt.Errorf("current object is not set for %q", path)
		}
		return s.vivifier.GetPath(s.current, rest, true)
	}
	if rest, ok := strings.CutPrefix(path, ParamPrefix); ok {
		if rest == "" {
			return nil, fmt.Errorf("empty parameter path %q", path)
		}
		return s.vivifier.GetPath(s.Context, rest, false)
	}

	var lastErr error
	for i := len(s.frames) - 1; i >= 0; i-- {
		v, err := s.vivifier.GetPath(s.frames[i], path, true)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if len(s.Context) > 0 {
		v, err := s.vivifier.GetPath(s.Context, path, false)
		if err == nil && v != nil {
			return v, nil
		}
	}
	if lastErr == nil {
		lastErr = ErrEmptyStack
	}
	return nil, lastErr
}

// Set assigns value at path on the base frame, creating absent intermediates.
func (s *PathStack) Set(path string, value any) error {
	if len(s.frames) == 0 {
		return ErrInvalidRoot
	}
	if rest, ok := topPath(path); ok {
		if rest == "" || s.current == nil {
			return fmt.Errorf("cannot assign to %q", path)
		}
		return s.vivifier.SetPath(s.current, rest, value)
	}
	if strings.HasPrefix(path, ParamPrefix) {
		return fmt.Errorf("cannot assign to parameter %q", path)
	}
	return s.vivifier.SetPath(s.frames[0], path, value)
}

func topPath(path string) (string, bool) {
	if path == TopToken {
		return "", true
	}
	if strings.HasPrefix(path, TopToken+".") {
		return path[len(TopToken)+1:], true
	}
	return "", false
}
