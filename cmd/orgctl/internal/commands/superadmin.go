package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// CreateSuperAdminCmd inserts a super admin. Super admins have no company
// and cannot be registered over the API.
type CreateSuperAdminCmd struct {
	Username  string `help:"Login name" required:""`
	Email     string `help:"Email address" required:""`
	Password  string `help:"Initial password" required:"" env:"ORGCTL_PASSWORD"`
	FirstName string `help:"First name" default:"Super"`
	LastName  string `help:"Last name" default:"Admin"`
}

func (c *CreateSuperAdminCmd) Run(ctx context.Context, g *Globals) error {
	if len(c.Password) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	logger, err := g.logger()
	if err != nil {
		return err
	}
	cfg, pg, err := openPostgres(ctx, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	users := repository.NewUserRepository(pg.PoolHandle())
	if _, err := users.GetByUsername(ctx, c.Username); err == nil {
		return fmt.Errorf("user %q already exists", c.Username)
	} else if !apperrors.IsNotFound(err) {
		return err
	}

	hash, err := auth.NewPasswordHasher(cfg.Auth).Hash(c.Password)
	if err != nil {
		return err
	}
	user := &domain.User{
		Username:     strings.TrimSpace(c.Username),
		Email:        strings.TrimSpace(c.Email),
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}
	fmt.Printf("created super admin %s (id %d)\n", user.Username, user.ID)
	return nil
}
