/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/auth"
	"github.com/taskboard/apiserver/internal/server"
	"github.com/taskboard/apiserver/internal/services"
	"github.com/taskboard/apiserver/types"
	"golang.org/x/term"
)

type userCreateOptions struct {
	name     string
	email    string
	phone    string
	role     string
	password string
}

var userCreateOpts userCreateOptions

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user, typically the first admin",
	Long: `Creates a user directly in the configured store. Usage:

	taskboard user create --name "Ops" --email ops@example.com --role admin

The password is read from --password, or prompted for when omitted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if cfg.StoreBackend == config.StoreMemory {
			return errors.New("user create needs a persistent store, STORE_BACKEND is memory")
		}

		password := userCreateOpts.password
		if password == "" {
			var err error
			password, err = promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
		}

		in, err := userCreateOpts.input(password)
		if err != nil {
			return err
		}

		repos, err := server.OpenRepositories(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = repos.Close(context.Background())
		}()

		tokens := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
		return runCreateUser(cmd.Context(), services.NewUserService(repos.Users, tokens), in, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	flags := userCreateCmd.Flags()
	flags.StringVar(&userCreateOpts.name, "name", "", "display name")
	flags.StringVar(&userCreateOpts.email, "email", "", "login email")
	flags.StringVar(&userCreateOpts.phone, "phone", "", "optional phone number")
	flags.StringVar(&userCreateOpts.role, "role", "client", "role: admin or client")
	flags.StringVar(&userCreateOpts.password, "password", "", "password (prompted when empty)")
	_ = userCreateCmd.MarkFlagRequired("name")
	_ = userCreateCmd.MarkFlagRequired("email")
}

func (o userCreateOptions) input(password string) (services.RegisterInput, error) {
	role, err := types.ParseRole(o.role)
	if err != nil {
		return services.RegisterInput{}, err
	}
	return services.RegisterInput{
		Name:     o.name,
		Email:    o.email,
		Phone:    o.phone,
		Password: password,
		Role:     &role,
	}, nil
}

func runCreateUser(ctx context.Context, users *services.UserService, in services.RegisterInput, out io.Writer) error {
	user, err := users.CreateUser(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return err
}

// promptPassword reads a password without echo from a terminal, or one line from any other reader.
func promptPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
