package commands

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/faithdive/faithdive/internal/web/auth"
)

// NewAdminCommand creates the admin command
func NewAdminCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin credential helpers",
		Long: `Generate the values admin login needs.

Admin login is enabled when both auth.jwt_secret and auth.admin_password_hash
are set in the config file or the FAITHDIVE_AUTH_* environment variables.`,
	}

	cmd.AddCommand(newAdminHashPasswordCommand())
	cmd.AddCommand(newAdminSecretCommand())

	return cmd
}

func newAdminHashPasswordCommand() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash an admin password for auth.admin_password_hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if fromStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password on stdin")
				}
				password = strings.TrimRight(line, "\r\n")
			} else {
				var confirm string
				if err := survey.AskOne(&survey.Password{Message: "Admin password:"}, &password, survey.WithValidator(survey.MinLength(auth.MinPasswordLength))); err != nil {
					return err
				}
				if err := survey.AskOne(&survey.Password{Message: "Confirm password:"}, &confirm); err != nil {
					return err
				}
				if confirm != password {
					return errors.New("passwords do not match")
				}
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from the first line of stdin")

	return cmd
}

func newAdminSecretCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a random auth.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 32 {
				return fmt.Errorf("--bytes must be at least 32, got %d", size)
			}
			buf := make([]byte, size)
			if _, err := rand.Read(buf); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf))
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "bytes", 32, "secret length in bytes")

	return cmd
}
