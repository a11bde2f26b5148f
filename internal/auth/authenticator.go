package auth

import (
	"context"

	"github.com/triptab/triptab/internal/models"
)

// Authenticator defines the interface for authentication implementations,
// so the service layer does not care whether credentials are passwords,
// OAuth tokens or something else.
type Authenticator interface {
	// Register creates a new user account with the given email and
	// credential, returning the created user.
	Register(ctx context.Context, email, name, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user
	// if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks that the credential meets the
	// implementation's requirements before any storage work happens.
	ValidateCredential(credential string) error
}
