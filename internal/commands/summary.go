package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Staniell/MonthWise/internal/money"
	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/service"
	"github.com/Staniell/MonthWise/internal/storage"
)

func newSummaryCommand(a *app) *cobra.Command {
	var profileID string
	var year, month int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the allowance, spending and balance of a month or a whole year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.store(ctx)
			if err != nil {
				return err
			}
			if profileID == "" {
				if profileID, err = currentProfile(ctx, s); err != nil {
					return err
				}
			}
			if err := service.NewSecurityService(s, a.cfg.Auth.Scheme, a.cfg.Auth.UnlockTTL).
				ValidateUnlock(ctx, unlockToken(), profileID); err != nil {
				return fmt.Errorf("profile is locked, run `monthwise profile unlock` first: %w", err)
			}

			f, err := formatterFor(ctx, s)
			if err != nil {
				return err
			}
			svc := service.NewSummaryService(s)
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}

			if month != 0 {
				r, err := svc.Month(ctx, profileID, year, month)
				if err != nil {
					return err
				}
				printMonth(cmd.OutOrStdout(), f, r)
				return nil
			}
			r, err := svc.Year(ctx, profileID, year, now)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "Month\tAllowance\tSpent\tBalance\tRemaining\t")
			for _, m := range r.Months {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", time.Month(m.Month).String()[:3],
					f(m.AllowanceCents), f(m.SpentCents), f(m.BalanceCents), f(m.RemainingCents))
			}
			fmt.Fprintf(w, "Total\t%s\t%s\t%s\t\t\n", f(r.AllowanceCents), f(r.SpentCents), f(r.BalanceCents))
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Excess through month %d: %s\n", r.ExcessThroughMonth, f(r.ExcessCents))
			return nil
		},
	}

	cmd.Flags().StringVar(&profileID, "profile", "", "profile id (default: current profile)")
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default: this year)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12; omit for the whole year")
	return cmd
}

func printMonth(out io.Writer, f func(int64) string, r *service.MonthReport) {
	fmt.Fprintf(out, "%s %d\n", time.Month(r.Month), r.Year)
	fmt.Fprintf(out, "  Allowance: %s", f(r.AllowanceCents))
	if r.HasOverride {
		fmt.Fprint(out, " (override)")
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Spent:     %s", f(r.SpentCents))
	if r.SpentPercent != nil {
		fmt.Fprintf(out, " (%d%%)", *r.SpentPercent)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Balance:   %s\n", f(r.BalanceCents))
	fmt.Fprintf(out, "  Remaining: %s\n", f(r.RemainingCents))

	if len(r.Breakdown) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, line := range r.Breakdown {
		fmt.Fprintf(w, "  %s\t%s\t%d\n", line.Category.Name, f(line.TotalCents), line.Count)
	}
	_ = w.Flush()
}

// formatterFor renders cents using the currency_code and hide_cents settings.
func formatterFor(ctx context.Context, s storage.Store) (func(int64) string, error) {
	currency, _, err := s.Settings().Get(ctx, models.SettingCurrencyCode)
	if err != nil {
		return nil, err
	}
	raw, _, err := s.Settings().Get(ctx, models.SettingHideCents)
	if err != nil {
		return nil, err
	}
	hideCents, _ := strconv.ParseBool(raw)
	return func(cents int64) string { return money.Format(cents, currency, hideCents) }, nil
}

// currentProfile resolves the current_profile_id setting, falling back to the
// only profile when there is exactly one.
func currentProfile(ctx context.Context, s storage.Store) (string, error) {
	id, ok, err := s.Settings().Get(ctx, models.SettingCurrentProfileID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}
	profiles, err := s.Profiles().List(ctx)
	if err != nil {
		return "", err
	}
	switch len(profiles) {
	case 0:
		return "", fmt.Errorf("no profiles yet, create one with `monthwise profile create NAME`: %w", storage.ErrNotFound)
	case 1:
		return profiles[0].ID, nil
	default:
		return "", errors.New("several profiles exist, pass --profile")
	}
}
