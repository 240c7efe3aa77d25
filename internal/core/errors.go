package core

import (
	"errors"
	"fmt"
)

// ErrNoResources reports a source that produced no data rows.
var ErrNoResources = errors.New("no resources could be imported")

// FileError reports an import source that could not be opened, read, or
// parsed. It aborts a run before any record is processed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("import file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a per-record failure.
type ErrorKind string

const (
	KindRecordCreation    ErrorKind = "record_creation"
	KindMetadata          ErrorKind = "metadata"
	KindAttachmentMissing ErrorKind = "attachment_missing"
	KindAttachmentStore   ErrorKind = "attachment_store"
	KindTag               ErrorKind = "tag"
)

// Kinds lists every per-record error kind.
var Kinds = []ErrorKind{
	KindRecordCreation,
	KindMetadata,
	KindAttachmentMissing,
	KindAttachmentStore,
	KindTag,
}

// RecordError is an advisory failure of one import step for one record.
// None of these stop a run.
type RecordError struct {
	Kind     ErrorKind
	RecordID int64  // Zero when the record was never created
	Title    string // Record title, for traceability
	Key      string // Metadata key or attachment name, when relevant
	Err      error  // Underlying store error, if any

	msg string
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return e.msg + ": " + e.Err.Error()
	}
	return e.msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func newRecordCreationError(title string, err error) *RecordError {
	return &RecordError{
		Kind:  KindRecordCreation,
		Title: title,
		Err:   err,
		msg:   fmt.Sprintf("record titled %q failed to insert", title),
	}
}

func newNoMetadataError(id int64, title string) *RecordError {
	return &RecordError{
		Kind:     KindMetadata,
		RecordID: id,
		Title:    title,
		msg:      fmt.Sprintf("no metadata found for record ID=%d", id),
	}
}

func newMetadataError(id int64, title, key string, err error) *RecordError {
	return &RecordError{
		Kind:     KindMetadata,
		RecordID: id,
		Title:    title,
		Key:      key,
		Err:      err,
		msg:      fmt.Sprintf("%s meta failed for record ID=%d", key, id),
	}
}

func newAttachmentMissingError(id int64, title, name string, err error) *RecordError {
	return &RecordError{
		Kind:     KindAttachmentMissing,
		RecordID: id,
		Title:    title,
		Key:      name,
		Err:      err,
		msg:      fmt.Sprintf("image file %q not found for record ID=%d", name, id),
	}
}

func newAttachmentStoreError(id int64, title, name string, err error) *RecordError {
	return &RecordError{
		Kind:     KindAttachmentStore,
		RecordID: id,
		Title:    title,
		Key:      name,
		Err:      err,
		msg:      fmt.Sprintf("attachment %q failed for record ID=%d", name, id),
	}
}

func newTagError(id int64, title string, err error) *RecordError {
	return &RecordError{
		Kind:     KindTag,
		RecordID: id,
		Title:    title,
		Err:      err,
		msg:      fmt.Sprintf("tags failed for record ID=%d", id),
	}
}
