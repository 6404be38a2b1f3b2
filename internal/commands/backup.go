package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Staniell/MonthWise/internal/service"
)

func newExportCommand(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of every profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			svc := service.NewBackupService(s, a.metrics)

			if out == "" || out == "-" {
				return svc.WriteTo(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := svc.WriteTo(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "backup written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace all data with the contents of a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("opening %s: %w", in, err)
			}
			defer f.Close()

			s, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			res, err := service.NewBackupService(s, a.metrics).Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d profiles, %d months, %d expenses, %d allowance sources, %d categories\n",
				res.Profiles, res.Months, res.Expenses, res.AllowanceSources, res.Categories)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "backup file to restore (required)")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
