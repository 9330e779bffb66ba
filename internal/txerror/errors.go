// Package txerror defines the typed failures raised by the transaction entry engine.
// Every wrapper keeps its cause reachable through errors.Is and errors.As.
package txerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyLabel is returned when a blank label reaches the resolver.
	ErrEmptyLabel = errors.New("label is empty")
	// ErrMissingParent is returned when a subcategory is resolved without a category id.
	ErrMissingParent = errors.New("subcategory requires a resolved category")
	// ErrDuplicateLabel is returned when a rename would collide with another entity.
	ErrDuplicateLabel = errors.New("label already used by another entity")
	// ErrEntityNotFound is returned when a rename targets an id missing from the cache.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrSubmitInProgress is returned when Submit is called while another submit runs.
	ErrSubmitInProgress = errors.New("a submit is already in progress for this draft")
	// ErrFormClosed is returned when work arrives for a draft that was closed.
	ErrFormClosed = errors.New("form is closed")
	// ErrMissingTransactionID is returned when an update payload has no target.
	ErrMissingTransactionID = errors.New("update requires a transaction id")
	// ErrUnauthorized matches APIError values carrying HTTP 401.
	ErrUnauthorized = errors.New("unauthorized: please login again")
)

// EntityCreationError represents a failed create call for a reference entity.
type EntityCreationError struct {
	Kind  string
	Label string
	Err   error
}

func (e *EntityCreationError) Error() string {
	return fmt.Sprintf("failed to create %s %q: %v", e.Kind, e.Label, e.Err)
}

func (e *EntityCreationError) Unwrap() error {
	return e.Err
}

// EntityRenameError represents a failed in-place rename of a reference entity.
type EntityRenameError struct {
	Kind  string
	ID    string
	Label string
	Err   error
}

func (e *EntityRenameError) Error() string {
	return fmt.Sprintf("failed to rename %s %s to %q: %v", e.Kind, e.ID, e.Label, e.Err)
}

func (e *EntityRenameError) Unwrap() error {
	return e.Err
}

// ExtractionError represents a failed receipt extraction call.
type ExtractionError struct {
	File string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("receipt extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("receipt extraction failed for %s: %v", e.File, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Submit stages reported by SubmitError.
const (
	StageCategory    = "category"
	StageVendor      = "vendor"
	StageAccount     = "account"
	StageSubcategory = "subcategory"
	StageBuild       = "build"
	StageWrite       = "write"
)

// SubmitError wraps the first failure of a submit: an entity resolution, the
// payload build, or the final write call.
type SubmitError struct {
	Stage string
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// FeedFetchError represents a failed page fetch of the transaction feed.
type FeedFetchError struct {
	Page int
	Err  error
}

func (e *FeedFetchError) Error() string {
	return fmt.Sprintf("failed to fetch transactions page %d: %v", e.Page, e.Err)
}

func (e *FeedFetchError) Unwrap() error {
	return e.Err
}

// APIError represents a non-2xx answer from the backend.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: backend returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
