package internal

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned when a blank or whitespace-only question is
// rejected before any message is appended or any request is made.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrBusy is returned when a session already has a question in flight.
var ErrBusy = errors.New("a question is already in flight for this session")

// ErrSessionDeleted is returned when a response arrives for a session that
// was deleted while the request was outstanding.
var ErrSessionDeleted = errors.New("session was deleted while request was in flight")

// StoreError represents errors accessing the persistent store
type StoreError struct {
	Key string
	Op  string // "set", "remove", "open"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// APIError represents a non-2xx response from the RAG service
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api error [%s]: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api error [%s]: status %d", e.Endpoint, e.StatusCode)
}

// ParseError represents errors parsing data
type ParseError struct {
	Source string // "store", "response"
	Key    string // store key or endpoint
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
