package commands

import (
	"context"
	"fmt"

	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/domain"
)

// TokenCmd signs a token for an existing user id without a password. It is
// meant for local testing of the relay.
type TokenCmd struct {
	UserID     int64  `help:"User id" required:""`
	Username   string `help:"Username claim" required:""`
	Role       string `help:"Role claim" default:"employee" enum:"super_admin,company_admin,manager,employee"`
	CompanyID  int64  `help:"Company id claim; 0 for none"`
	TTLMinutes int    `help:"Token lifetime in minutes" default:"60"`
	SigningKey string `help:"JWT signing key" required:"" env:"AUTH_JWT_SECRET"`
}

func (t *TokenCmd) Run(ctx context.Context) error {
	user := &domain.User{ID: t.UserID, Username: t.Username, Role: domain.Role(t.Role)}
	if t.CompanyID > 0 {
		user.CompanyID = &t.CompanyID
	}
	token, _, err := auth.NewTokenManager(t.SigningKey, t.TTLMinutes).GenerateToken(user)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
