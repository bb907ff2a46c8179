package domain

import "errors"

var (
	// ErrUserNotFound is returned when a user id is unknown
	ErrUserNotFound = errors.New("user not found")

	// ErrRecordNotFound is returned when a record id is unknown
	ErrRecordNotFound = errors.New("record not found")

	// ErrReviewRequestNotFound is returned when a review request id is unknown
	ErrReviewRequestNotFound = errors.New("review request not found")

	// ErrRecordNotLive is returned when a review request is opened against a
	// record that is not in the live state
	ErrRecordNotLive = errors.New("record is not live")

	// ErrReviewNotOpen is returned when an operation expects an open review request
	ErrReviewNotOpen = errors.New("review request is not open")

	// ErrAlreadyFinalized is returned when finalize is called on a review
	// request that has already been finalized
	ErrAlreadyFinalized = errors.New("review request already finalized")

	// ErrInsufficientBalance is returned when a debit is attempted while the
	// user's VP balance is not strictly positive
	ErrInsufficientBalance = errors.New("insufficient VP balance")

	// ErrValidation is returned for malformed input (reason too short, window
	// end not after start, non-positive amounts)
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a concurrent modification prevented an
	// operation; callers may retry once
	ErrConflict = errors.New("concurrent modification conflict")
)
