package cli

import (
	"errors"
	"fmt"

	"github.com/gdg-garage/medislot-api/internal/auth"
	"github.com/spf13/cobra"
)

// NewTokenCommand issues a token signed with JWT_SECRET, for local
// development and service accounts.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var id auth.Identity
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			id.Role = auth.Role(role)
			switch id.Role {
			case auth.RoleAdmin, auth.RolePatient, auth.RoleLab, auth.RoleLabAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.NewIssuer(opts.Config.JWTSecret).Issue(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&id.Subject, "sub", "", "subject (user id)")
	cmd.Flags().StringVar(&role, "role", string(auth.RolePatient), "admin|patient|lab|lab_admin")
	cmd.Flags().StringVar(&id.Email, "email", "", "email claim")
	cmd.Flags().StringVar(&id.CenterID, "center", "", "health center id for lab roles")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
