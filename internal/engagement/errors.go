package engagement

import "errors"

var (
	// ErrInvalidTarget indicates the target type or id is malformed.
	ErrInvalidTarget = errors.New("invalid like target")
	// ErrTargetNotFound indicates the referenced video, comment, or tweet
	// does not exist.
	ErrTargetNotFound = errors.New("like target not found")
	// ErrConflict indicates a toggle kept losing its race after retrying.
	ErrConflict = errors.New("toggle conflict")
)
