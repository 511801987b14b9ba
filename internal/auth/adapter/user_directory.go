// Package adapter bridges auth into the ports other modules define,
// keeping cross-module dependencies one-directional.
package adapter

import (
	"context"

	"github.com/google/uuid"

	"prodline_backend/internal/auth/service"
	orderservice "prodline_backend/internal/orders/service"
)

// UserDirectory adapts the auth service to the orders module's
// UserDirectory port.
type UserDirectory struct {
	svc *service.Service
}

func NewUserDirectory(svc *service.Service) *UserDirectory {
	return &UserDirectory{svc: svc}
}

func (d *UserDirectory) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.svc.Exists(ctx, id)
}

var _ orderservice.UserDirectory = (*UserDirectory)(nil)
