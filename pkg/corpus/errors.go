package corpus

import "fmt"

// MalformedDocumentError reports a document whose metadata block is
// unterminated or invalid. It aborts a load.
type MalformedDocumentError struct {
	Path string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %s: %v", e.Path, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

// DuplicateDocumentError reports two files that resolve to the same ID. It
// aborts a load.
type DuplicateDocumentError struct {
	ID    string
	Path  string // the file that collided
	First string // the file that claimed the ID first
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("duplicate document id %q: %s conflicts with %s", e.ID, e.Path, e.First)
}

// NotFoundError reports a lookup for a document that is not in the store
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", e.Ref)
}
