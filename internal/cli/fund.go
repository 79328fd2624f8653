package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/proofslot/internal/ir"
)

// BalanceOutput is a payer ledger balance.
type BalanceOutput struct {
	Identity string `json:"identity"`
	Lamports uint64 `json:"lamports"`
}

func (o BalanceOutput) String() string {
	return fmt.Sprintf("%s: %d lamports", o.Identity, o.Lamports)
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <identity> <lamports>",
		Short: "Credit lamports to a payer",
		Long: `Credit lamports to an identity's payer balance.

Slot creation debits rent from this balance.

Examples:
  proofslot fund 4Nd1m... 5000000`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFund(rootOpts, args[0], args[1], cmd)
		},
	}
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <identity>",
		Short:         "Show a payer's balance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(rootOpts, args[0], cmd)
		},
	}
}

func runFund(opts *RootOptions, identity, amount string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	lamports, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid lamports %q", amount), err)
	}
	id, err := ir.ParseIdentity(identity)
	if err != nil {
		return out.Fail("E_IDENTITY", "invalid identity", err)
	}

	records, closeFn, err := opts.openRecords()
	if err != nil {
		return err
	}
	defer closeFn()

	bal, err := records.Fund(cmd.Context(), id, lamports)
	if err != nil {
		return out.Fail("E_FUND", "fund failed", err)
	}
	return out.Success(BalanceOutput{Identity: id.String(), Lamports: bal})
}

func runBalance(opts *RootOptions, identity string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	id, err := ir.ParseIdentity(identity)
	if err != nil {
		return out.Fail("E_IDENTITY", "invalid identity", err)
	}

	records, closeFn, err := opts.openRecords()
	if err != nil {
		return err
	}
	defer closeFn()

	bal, err := records.Balance(cmd.Context(), id)
	if err != nil {
		return out.Fail("E_BALANCE", "balance failed", err)
	}
	return out.Success(BalanceOutput{Identity: id.String(), Lamports: bal})
}
