// Package errors provides standardized error handling for the export pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeCatalogCountFailed ErrorCode = "CATALOG_COUNT_FAILED"
	ErrCodeCatalogPageFailed  ErrorCode = "CATALOG_PAGE_FAILED"
	ErrCodeCatalogTimeout     ErrorCode = "CATALOG_TIMEOUT"

	ErrCodeInvalidExportRequest ErrorCode = "INVALID_EXPORT_REQUEST"

	ErrCodeWorkbookWriteFailed ErrorCode = "WORKBOOK_WRITE_FAILED"
	ErrCodeFileFinalizeFailed  ErrorCode = "FILE_FINALIZE_FAILED"
	ErrCodeArchiveBundleFailed ErrorCode = "ARCHIVE_BUNDLE_FAILED"

	ErrCodeJobStoreFailed ErrorCode = "JOB_STORE_FAILED"
)

// ExportError represents a structured application error. Any ExportError
// that reaches the orchestrator aborts the export; there is no partial
// success outcome.
type ExportError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("ExportError[%s]: %s", e.Code, e.Message)
}

// CodeOf extracts the error code from err, or empty string if err is not
// an ExportError.
func CodeOf(err error) ErrorCode {
	var ee *ExportError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// NewCatalogCountFailedError creates a retryable upstream count error.
func NewCatalogCountFailedError(err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeCatalogCountFailed,
		Message:   "Catalog count request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogPageFailedError creates a retryable upstream page retrieval error.
func NewCatalogPageFailedError(offset int, err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeCatalogPageFailed,
		Message:   "Catalog page request failed",
		Details:   fmt.Sprintf("offset: %d, error: %s", offset, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogTimeoutError creates a retryable upstream timeout error.
func NewCatalogTimeoutError(err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeCatalogTimeout,
		Message:   "Catalog request timed out",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidExportRequestError creates a non-retryable request error.
func NewInvalidExportRequestError(details string) *ExportError {
	return &ExportError{
		Code:      ErrCodeInvalidExportRequest,
		Message:   "Export request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWorkbookWriteFailedError creates a non-retryable row write error.
func NewWorkbookWriteFailedError(err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeWorkbookWriteFailed,
		Message:   "Workbook row write failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileFinalizeFailedError creates a non-retryable finalization error.
func NewFileFinalizeFailedError(filename string, err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeFileFinalizeFailed,
		Message:   "Spreadsheet finalization failed",
		Details:   fmt.Sprintf("file: %s, error: %s", filename, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewArchiveBundleFailedError creates a non-retryable archive error.
func NewArchiveBundleFailedError(err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeArchiveBundleFailed,
		Message:   "Archive bundling failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobStoreFailedError creates a retryable job store error.
func NewJobStoreFailedError(err error) *ExportError {
	return &ExportError{
		Code:      ErrCodeJobStoreFailed,
		Message:   "Export job store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
