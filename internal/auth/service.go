package auth

import (
	"context"
	"errors"

	"github.com/fomet/fomet/internal/recordstore"
	"github.com/fomet/fomet/internal/shared"
)

// Backend verifies credentials. Password checks live in the record store backend.
type Backend interface {
	Login(ctx context.Context, username, password string) (map[string]any, error)
}

// Service wraps authentication business rules.
type Service struct {
	backend Backend
}

// NewService constructs a new Service.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Authenticate validates the credentials and returns the session principal.
// A backend rejection is reported as shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (shared.Principal, error) {
	data, err := s.backend.Login(ctx, username, password)
	if err != nil {
		var rejection *recordstore.BusinessRejection
		if errors.As(err, &rejection) {
			return shared.Principal{}, shared.ErrInvalidCredentials
		}
		return shared.Principal{}, err
	}
	return shared.PrincipalFromLogin(username, data), nil
}
