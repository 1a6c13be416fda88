package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"testing"

	"github.com/knowledgelearning/backend/core/user"
	dummydb "github.com/knowledgelearning/backend/storage/database/dummy"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	logger = log.New(os.Stdout, "TEST : ", log.LstdFlags)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)

	// start CLI
	return &commandLine{
		usrRepo: usrRepo,
		catRepo: dummydb.NewCatalogRepository(db),
	}
}

func createUser(t *testing.T, uname, email, pwd string) user.User {
	usr := user.User{
		Name:     "User",
		Username: uname,
		Email:    email,
		Role:     user.RoleClient,
		IsActive: true,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "lesson", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "awe", "awe@test.fr", "mdr")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("password123"), nil }

	t.Run("create", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-username", "jdupont", "-email", "jean@test.fr", "-name", "Jean Dupont"}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		usr, err := usrRepo.GetUserByUsername(context.Background(), "jdupont")
		if err != nil {
			t.Fatalf("GetUserByUsername() failed: %v", err)
		}
		if usr.Role != user.RoleClient || !usr.IsActive {
			t.Errorf("user = %+v; want an active client", usr)
		}
	})

	t.Run("promote to admin", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-username", "jdupont", "-email", "jean@test.fr", "-admin"}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		usr, err := usrRepo.GetUserByUsername(context.Background(), "jdupont")
		if err != nil {
			t.Fatalf("GetUserByUsername() failed: %v", err)
		}
		if usr.Role != user.RoleAdmin {
			t.Errorf("role = %v; want %v", usr.Role, user.RoleAdmin)
		}
	})

	t.Run("missing flags", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-username", "jdupont"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})
}

func Test_commandLine_populate(t *testing.T) {
	cli := setup(t)

	if err := cli.run([]string{"admin", "populate"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	themes, err := cli.catRepo.QueryAllThemes(context.Background())
	if err != nil {
		t.Fatalf("QueryAllThemes() failed: %v", err)
	}
	if len(themes) != len(initialCatalog) {
		t.Fatalf("themes = %d; want %d", len(themes), len(initialCatalog))
	}

	cursus, err := cli.catRepo.QueryAllCursus(context.Background())
	if err != nil {
		t.Fatalf("QueryAllCursus() failed: %v", err)
	}
	if len(cursus) != 6 {
		t.Errorf("cursus = %d; want 6", len(cursus))
	}

	// re-running must not duplicate anything
	if err := cli.run([]string{"admin", "populate"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}
	themes, _ = cli.catRepo.QueryAllThemes(context.Background())
	if len(themes) != len(initialCatalog) {
		t.Errorf("themes after rerun = %d; want %d", len(themes), len(initialCatalog))
	}
}
