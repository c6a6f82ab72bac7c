package domain

import "errors"

var (
	ErrQuotaExceeded   = errors.New("daily confession quota exceeded")
	ErrContentTooShort = errors.New("confession is too short")
	ErrContentTooLong  = errors.New("confession is too long")
	ErrMissingCaption  = errors.New("photo confession has no caption")
	ErrPersistence     = errors.New("persistence failure")
	ErrTransport       = errors.New("transport failure")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Err maps a rejection reason to its sentinel error.
func (r RejectReason) Err() error {
	switch r {
	case ReasonTooShort:
		return ErrContentTooShort
	case ReasonTooLong:
		return ErrContentTooLong
	case ReasonMissingCaption:
		return ErrMissingCaption
	default:
		return nil
	}
}
