package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wellcome-app/wizard"
	"github.com/wellcome-app/wizard/clock"
)

// feed: list the upcoming events, optionally near an address.
func feedCmd() *cobra.Command {
	var near string

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "List upcoming meal events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if appCtx.cfg.SubmitSimulate {
				return fmt.Errorf("no event store when simulating submissions")
			}

			es, err := appCtx.EventStore()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), appCtx.cfg.SubmitTimeout)
			defer cancel()

			feed := wizard.NewFeed(appCtx.types)
			if err := feed.Refresh(ctx, es, appCtx.subjectPrefix()+".*"); err != nil {
				return err
			}

			listings := feed.Upcoming(clock.Time)
			if near != "" {
				listings = feed.Near(clock.Time, near)
			}

			out := cmd.OutOrStdout()
			if len(listings) == 0 {
				fmt.Fprintln(out, "Nenhum evento encontrado.")
				return nil
			}
			for _, l := range listings {
				fmt.Fprintln(out, formatListing(l, clock.Time))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&near, "near", "", "only events whose address contains this text")
	return cmd
}

func formatListing(l wizard.Listing, c clock.Clock) string {
	title := l.Title
	if title == "" {
		title = l.EventType
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s/convidado  até %d convidados\n",
		l.Date.Format("02/01/2006"), title, formatCents(l.PriceCents), l.MaxGuests)
	fmt.Fprintf(&b, "    %s\n", l.Address)
	if len(l.Cuisines) > 0 {
		fmt.Fprintf(&b, "    %s\n", strings.Join(l.Cuisines, ", "))
	}
	if l.OpenForRegistration(c) {
		fmt.Fprintf(&b, "    inscrições até %s", l.RegistrationDeadline.Format("02/01/2006"))
	} else {
		b.WriteString("    inscrições encerradas")
	}
	return b.String()
}

func formatCents(c int64) string {
	return fmt.Sprintf("R$ %d,%02d", c/100, c%100)
}
