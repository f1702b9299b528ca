package services

import (
	"context"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/api"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

type PasswordService struct {
	client *api.Client
}

func NewPasswordService(client *api.Client) *PasswordService {
	return &PasswordService{client: client}
}

// RequestPasswordReset asks the backend to mail a reset link and returns its
// message, if any.
func (s *PasswordService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var resp models.MessageResponse
	if err := s.client.Post(ctx, "/users/forgot-password", models.PasswordResetRequest{Email: email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var resp models.MessageResponse
	if err := s.client.Post(ctx, "/auth/reset-password", models.PasswordReset{Token: token, NewPassword: newPassword}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
