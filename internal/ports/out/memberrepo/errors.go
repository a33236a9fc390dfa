package memberrepo

import "errors"

var (
	// ErrNotFound indicates the requested member does not exist.
	ErrNotFound = errors.New("member not found")

	// ErrAlreadyExists indicates a member already exists with the provided ID.
	ErrAlreadyExists = errors.New("member already exists")

	// ErrMemberNumberTaken indicates the member number unique constraint was violated.
	ErrMemberNumberTaken = errors.New("member number already taken")
)
