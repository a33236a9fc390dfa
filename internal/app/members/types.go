package members

import (
	"io"

	"github.com/alubilles/membership-api/internal/domain"
)

// RegisterInput is a registration request. Identity fields are trimmed; LastName and
// FirstName are required.
type RegisterInput struct {
	Identity domain.Identity
	Photo    *PhotoUpload
}

// PhotoUpload is an uploaded photo. The extension of Filename picks the stored type.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ListFilter narrows an admin listing. A non-empty Query searches names and numbers.
type ListFilter struct {
	Status *domain.Status
	Query  string
}
