package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"carpool/internal/backend"
	"carpool/internal/backup"
	"carpool/internal/calculator"
	"carpool/internal/core"
	"carpool/internal/worker"
)

// withLedger opens the local ledger for the duration of fn.
func withLedger(a *app, fn func(l *LocalLedger) error) (err error) {
	l, err := OpenLedger(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("close ledger: %w", cerr)
		}
	}()
	return fn(l)
}

func newBalanceCommand(a *app) *cobra.Command {
	var start, end, format string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print what every traveller owes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(a, func(l *LocalLedger) error {
				snap := l.Store.GetPersistedState()
				if start != "" || end != "" {
					r := core.DateRange{Start: start, End: end}
					if err := r.Validate(); err != nil {
						return err
					}
					snap.DateRange = r
				}
				summary := calculator.AllBalances(snap)

				switch format {
				case "json":
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(summary)
				case "table":
					return writeBalanceTable(cmd.OutOrStdout(), snap.DateRange, summary)
				default:
					return fmt.Errorf("unknown format %q", format)
				}
			})
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "range start (YYYY-MM-DD), defaults to the ledger range")
	cmd.Flags().StringVar(&end, "end", "", "range end (YYYY-MM-DD), defaults to the ledger range")
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json)")
	return cmd
}

func writeBalanceTable(w io.Writer, r core.DateRange, s calculator.Summary) error {
	fmt.Fprintf(w, "Balances %s .. %s\n\n", r.Start, r.End)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TRAVELLER\tTRIPS\tCHARGE\tPAID\tPENDING\tBALANCE\tSTATUS\t")
	for _, tb := range s.Travellers {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			tb.Traveller.Name,
			tb.TotalTrips,
			tb.TotalCharge.Format(),
			tb.TotalPayments.Format(),
			tb.TotalPending.Format(),
			tb.Balance.Balance.Format(),
			tb.Status)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%s\t%s\t\t%s\t\t\n",
		s.TotalTrips,
		s.TotalCharge.Format(),
		s.TotalPayments.Format(),
		s.TotalDue.Format())
	return tw.Flush()
}

func newBackupCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export or import ledger backups",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger to a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(a, func(l *LocalLedger) error {
				now := time.Now()
				b := backup.New(l.Store.GetPersistedState(), now)
				if output == "-" {
					return backup.Encode(cmd.OutOrStdout(), b)
				}
				path := output
				if path == "" {
					path = backup.FileName(now)
				}
				if err := backup.WriteFile(path, b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
				return nil
			})
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", `backup file path, "-" for stdout (default: dated file in the current directory)`)

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a backup file into the ledger",
		Long: `Merge a backup file into the ledger.

Records already on this device win on id collisions; everything else in
the backup is added. Settings are taken from the backup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backup.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withLedger(a, func(l *LocalLedger) error {
				merged := l.Store.MergeRestoreFromBackup(b.LedgerState)
				a.logger.Info("Backup imported",
					"file", args[0],
					"travellers", len(merged.Travellers),
					"payments", len(merged.CashPayments))
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d travellers, %d payments, %d pending, %d expenses, %d incomes\n",
					args[0],
					len(merged.Travellers),
					len(merged.CashPayments),
					len(merged.OtherPending),
					len(merged.CarExpenses),
					len(merged.CoTravellerIncomes))
				return nil
			})
		},
	}

	cmd.AddCommand(export, imp)
	return cmd
}

func newResetCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every traveller, trip and record on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes the whole ledger; pass --yes to confirm")
			}
			return withLedger(a, func(l *LocalLedger) error {
				l.Store.ClearAllLedgerData()
				fmt.Fprintln(cmd.OutOrStdout(), "Ledger cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func newPullCommand(a *app) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Merge the remote ledger into this device once",
		Long: `Fetch the owner's remote ledger and merge it into the local one.

Local edits are pushed by serve, which tracks what has been saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				owner = a.cfg.LedgerOwner
			}
			if owner == "" {
				return errors.New("no ledger owner: set LEDGER_OWNER or pass --owner")
			}
			bcfg, err := backend.FromAppConfig(a.cfg)
			if err != nil {
				return err
			}
			if bcfg.Remote == backend.NoRemote {
				return errors.New("no remote backend configured")
			}

			return withLedger(a, func(l *LocalLedger) error {
				rem, err := backend.NewFactory(a.logger).CreateRemote(cmd.Context(), bcfg)
				if err != nil {
					return err
				}
				if rem.Cleanup != nil {
					defer rem.Cleanup()
				}

				coord := worker.NewCoordinator(l.Store, rem.Endpoint, worker.Config{}, worker.WithLogger(a.logger))
				if err := coord.Login(owner); err != nil {
					return err
				}
				defer coord.Logout()

				if err := coord.Pull(cmd.Context()); err != nil {
					return fmt.Errorf("pull: %w", err)
				}

				st := coord.State()
				fmt.Fprintf(cmd.OutOrStdout(), "Pulled %s: remote version %d, %d travellers on this device\n",
					owner, st.LastVersion, len(l.Store.GetPersistedState().Travellers))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "ledger owner (default: LEDGER_OWNER)")
	return cmd
}
