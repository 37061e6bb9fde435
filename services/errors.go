package services

import "errors"

// Error categories. Every error a service returns on purpose matches exactly
// one of these through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// DomainError is a specific, user-facing failure belonging to a category.
type DomainError struct {
	Kind error
	Msg  string
}

func (e *DomainError) Error() string { return e.Msg }

func (e *DomainError) Is(target error) bool { return target == e.Kind }

func newErr(kind error, msg string) *DomainError { return &DomainError{Kind: kind, Msg: msg} }

var (
	ErrMemberNotFound = newErr(ErrNotFound, "member not found")
	ErrBookNotFound   = newErr(ErrNotFound, "book not found")
	ErrLoanNotFound   = newErr(ErrNotFound, "loan not found")

	ErrDuplicateEmail       = newErr(ErrConflict, "email already registered")
	ErrDuplicateISBN        = newErr(ErrConflict, "isbn already registered")
	ErrBookUnavailable      = newErr(ErrConflict, "book is not available")
	ErrLoanAlreadyReturned  = newErr(ErrConflict, "loan already returned")
	ErrLoanNotActive        = newErr(ErrConflict, "loan is not active")
	ErrMemberHasOpenLoans   = newErr(ErrConflict, "member has open loans")
	ErrBookHasOpenLoans     = newErr(ErrConflict, "book has open loans")
	ErrAvailabilityMismatch = newErr(ErrConflict, "availability contradicts open loans")
)

// validationError wraps a message as an ErrValidation.
func validationError(msg string) error { return newErr(ErrValidation, msg) }
