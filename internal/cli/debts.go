package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/triptab/triptab/internal/cache"
	"github.com/triptab/triptab/internal/config"
	"github.com/triptab/triptab/internal/service"
	"github.com/triptab/triptab/internal/storage/sqlite"
)

var debtsCmd = &cobra.Command{
	Use:   "debts USER_ID",
	Short: "Print a user's aggregated debts from the local database",
	Long: `Compute one user's outstanding and settled debts directly from the
database, without going through the HTTP server. Useful for checking what the
app would show a user.`,
	Args: cobra.ExactArgs(1),
	RunE: runDebts,
}

func init() {
	rootCmd.AddCommand(debtsCmd)
	debtsCmd.Flags().String("trip", "", "limit to one trip id")
}

func runDebts(cmd *cobra.Command, args []string) error {
	userID := args[0]
	tripID, _ := cmd.Flags().GetString("trip")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	// One-shot run: no caching, warnings suppressed.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	debts := service.NewDebtService(store, cache.New(1), time.Nanosecond, logger)

	ctx := context.Background()
	out, err := debts.Outstanding(ctx, userID, tripID)
	if err != nil {
		return err
	}
	paid, err := debts.AlreadyPaid(ctx, userID, tripID)
	if err != nil {
		return err
	}

	w := os.Stdout
	fmt.Fprintf(w, "Outstanding for %s:\n", userID)
	if len(out.Creditors) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, c := range out.Creditors {
		fmt.Fprintf(w, "  owes %s  %.2f  across %d list(s), last activity %s\n",
			c.CreditorID, c.Total, c.TripCount, time.Unix(c.LastActivity, 0).Format("2006-01-02"))
	}

	fmt.Fprintln(w, "Settlements:")
	if len(paid.Pending) == 0 && len(paid.Confirmed) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for creditor, amount := range paid.Pending {
		fmt.Fprintf(w, "  pending   -> %s  %.2f\n", creditor, amount)
	}
	for creditor, amount := range paid.Confirmed {
		fmt.Fprintf(w, "  confirmed -> %s  %.2f\n", creditor, amount)
	}

	if paid.Skipped > 0 {
		fmt.Fprintf(w, "warning: %d payment row(s) skipped for broken joins\n", paid.Skipped)
	}
	for _, d := range paid.Drifts {
		fmt.Fprintf(w, "warning: summary %s disagrees with events (summary %.2f, events %.2f)\n",
			d.DebtID, d.SummaryPaid, d.EventsPaid)
	}
	return nil
}
