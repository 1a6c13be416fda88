package main

import (
	"context"
	"time"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/user"
)

// addUser updates or creates an active user.User.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	now := time.Now().UTC()

	usr := user.User{
		Name:      core.CleanString(name),
		Username:  core.CleanString(uname, true /* lower */),
		Email:     core.CleanString(email, true /* lower */),
		Role:      user.RoleClient,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	_, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
