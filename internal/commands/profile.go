package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/service"
)

// envUnlockToken carries the token printed by `profile unlock` into later
// invocations.
const envUnlockToken = "MONTHWISE_UNLOCK_TOKEN"

func unlockToken() string { return os.Getenv(envUnlockToken) }

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage profiles",
	}
	cmd.AddCommand(
		newProfileListCommand(a),
		newProfileCreateCommand(a),
		newProfileSecureCommand(a),
		newProfileUnsecureCommand(a),
		newProfileUnlockCommand(a),
	)
	return cmd
}

func newProfileListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			profiles, err := s.Profiles().List(ctx)
			if err != nil {
				return err
			}
			current, _, err := s.Settings().Get(ctx, models.SettingCurrentProfileID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSECURED\tCURRENT")
			for _, p := range profiles {
				mark := ""
				if p.ID == current {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", p.ID, p.Name, p.IsSecured, mark)
			}
			return w.Flush()
		},
	}
}

func newProfileCreateCommand(a *app) *cobra.Command {
	var makeCurrent bool

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			p := &models.Profile{Name: args[0]}
			if err := s.Profiles().Create(ctx, p); err != nil {
				return err
			}
			if makeCurrent {
				if err := s.Settings().Set(ctx, models.SettingCurrentProfileID, p.ID); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&makeCurrent, "current", false, "make the new profile the current one")
	return cmd
}

func passwordCommand(a *app, use, short string, run func(cmd *cobra.Command, svc *service.SecurityService, profileID, password string) error) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   use + " PROFILE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			svc := service.NewSecurityService(s, a.cfg.Auth.Scheme, a.cfg.Auth.UnlockTTL)
			return run(cmd, svc, args[0], password)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "profile password (required)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newProfileSecureCommand(a *app) *cobra.Command {
	return passwordCommand(a, "secure", "Protect a profile with a password",
		func(cmd *cobra.Command, svc *service.SecurityService, profileID, password string) error {
			if err := svc.EnableSecurity(cmd.Context(), profileID, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "profile secured")
			return nil
		})
}

func newProfileUnsecureCommand(a *app) *cobra.Command {
	return passwordCommand(a, "unsecure", "Remove the password of a profile",
		func(cmd *cobra.Command, svc *service.SecurityService, profileID, password string) error {
			if err := svc.DisableSecurity(cmd.Context(), profileID, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "profile security removed")
			return nil
		})
}

func newProfileUnlockCommand(a *app) *cobra.Command {
	return passwordCommand(a, "unlock", "Print an unlock token for a secured profile",
		func(cmd *cobra.Command, svc *service.SecurityService, profileID, password string) error {
			token, err := svc.Unlock(cmd.Context(), profileID, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export %s=%s\n", envUnlockToken, token)
			return nil
		})
}
