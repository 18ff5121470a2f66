// Package ledgererr defines the error kinds the core surfaces to callers.
//
// These are modeled as distinct types rather than sentinel values so that
// callers can carry structured detail (the offending id, the requested
// amount) and still use errors.As to dispatch on kind, mirroring how
// internal/datastore told apart an unsupported store type from a storage
// fault.
package ledgererr

import "fmt"

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Message)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// NotFoundError reports an unknown investor, transaction, tranche or backup.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError reports a duplicate name or unique-key violation.
type ConflictError struct {
	Kind string
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s already exists", e.Kind, e.Key)
}

// InsufficientUnitsError reports a withdrawal that exceeds owned units.
type InsufficientUnitsError struct {
	InvestorID int64
	Requested  string
	Available  string
}

func (e *InsufficientUnitsError) Error() string {
	return fmt.Sprintf("investor %d holds %s units, cannot burn %s", e.InvestorID, e.Available, e.Requested)
}

// NotReversibleError reports a delete/undo attempt against a non-terminal transaction.
type NotReversibleError struct {
	TransactionID int64
	Reason        string
}

func (e *NotReversibleError) Error() string {
	return fmt.Sprintf("transaction %d is not reversible: %s", e.TransactionID, e.Reason)
}

// StaleConfirmationError reports a fee-apply confirm_token mismatch.
type StaleConfirmationError struct {
	Expected string
	Received string
}

func (e *StaleConfirmationError) Error() string {
	return "confirm_token no longer matches the current snapshot"
}

// PreconditionFailedError reports a restore confirm-phrase mismatch or
// missing safety acknowledgments.
type PreconditionFailedError struct {
	Message string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Message)
}

// BusyError reports that the write mutex was not acquired within its timeout.
type BusyError struct {
	Timeout string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("write lock busy, timed out after %s", e.Timeout)
}

// StorageError wraps an underlying persistence fault. Callers may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CorruptedError reports a backup manifest/checksum mismatch on restore.
type CorruptedError struct {
	Detail string
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("backup archive corrupted: %s", e.Detail)
}
