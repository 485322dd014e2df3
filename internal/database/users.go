package database

import (
	"context"

	"github.com/mrlokans/wordpack/internal/entities"
)

func (d *Database) CreateUser(ctx context.Context, username, email, password string) (*entities.User, error) {
	return d.Users.CreateUser(ctx, username, email, password)
}

func (d *Database) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return d.Users.GetUserByUsername(ctx, username)
}

func (d *Database) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	return d.Users.Authenticate(ctx, username, password)
}

func (d *Database) DeleteUser(ctx context.Context, username string) (bool, error) {
	return d.Users.DeleteUser(ctx, username)
}
