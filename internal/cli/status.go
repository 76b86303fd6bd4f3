package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-faucet-backend/internal/config"
	"github.com/tbourn/go-faucet-backend/internal/services"
)

var statusUser string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a requester's last confirmed claim from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statusUser == "" {
			return errors.New("--user is required")
		}
		storeCfg, faucetCfg, err := config.LoadStore()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(storeCfg)
		if err != nil {
			return err
		}
		defer closeStore()

		// Status never calls the distribution service.
		svc := services.NewClaimService(store, nil, faucetCfg)
		view, err := svc.Status(cmd.Context(), statusUser)
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), statusUser, view)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusUser, "user", "", "requester id")
}

func printStatus(w io.Writer, user string, view services.StatusView) {
	if view.Last == nil {
		fmt.Fprintf(w, "%s: no confirmed claims, eligible now\n", user)
		return
	}
	last := view.Last
	fmt.Fprintf(w, "requester:   %s\n", user)
	fmt.Fprintf(w, "claimed at:  %s\n", time.Unix(last.CreatedAt, 0).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "amount:      %s\n", services.Quote{AmountWei: last.AmountWei}.Display())
	fmt.Fprintf(w, "address:     %s\n", last.Address)
	fmt.Fprintf(w, "transaction: %s (%s)\n", last.TxHash, last.TransactionID)
	if view.CooldownActive && view.NextEligibleAt != nil {
		fmt.Fprintf(w, "next claim:  %s\n", view.NextEligibleAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "next claim:  now")
	}
}
