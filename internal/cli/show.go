package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/proofslot/internal/ir"
	"github.com/roach88/proofslot/internal/record"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Address string // read this address instead of deriving one
}

// ShowOutput is the slot as an external reader sees it.
type ShowOutput struct {
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	Payer     string `json:"payer"`
	Lamports  uint64 `json:"lamports"`
	Empty     bool   `json:"empty"`
	EventType string `json:"event_type"`
	EventCode uint8  `json:"event_code"`
	Timestamp int64  `json:"timestamp"`
	Proof     string `json:"proof"`
}

func (o ShowOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Slot %s\n", o.Address)
	fmt.Fprintf(&b, "  owner:      %s\n", o.Owner)
	fmt.Fprintf(&b, "  payer:      %s\n", o.Payer)
	fmt.Fprintf(&b, "  lamports:   %d\n", o.Lamports)
	if o.Empty {
		b.WriteString("  record:     empty")
		return b.String()
	}
	fmt.Fprintf(&b, "  event type: %s\n", o.EventType)
	fmt.Fprintf(&b, "  timestamp:  %d\n", o.Timestamp)
	fmt.Fprintf(&b, "  proof:      %s", o.Proof)
	return b.String()
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [identity]",
		Short: "Show the proof record stored for an identity",
		Long: `Show the proof record stored in a slot.

The slot is located by deriving its address from the identity, or read
directly with --address.

Exit codes:
  0 - Record shown
  1 - No slot at the address
  2 - Command error
  3 - Malformed identity
  4 - Storage at the address is not a proof record

Examples:
  proofslot show 4Nd1m...
  proofslot show --address 8Hq3...
  proofslot show 4Nd1m... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := ""
			if len(args) == 1 {
				identity = args[0]
			}
			return runShow(opts, identity, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Address, "address", "", "slot address to read (base58)")

	return cmd
}

func runShow(opts *ShowOptions, identity string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if (identity == "") == (opts.Address == "") {
		return NewExitError(ExitCommandError, "exactly one of <identity> or --address is required")
	}

	var addr ir.Address
	var id ir.Identity
	var err error
	if opts.Address != "" {
		if addr, err = ir.ParseAddress(opts.Address); err != nil {
			return WrapExitError(ExitCommandError, "invalid address", err)
		}
	} else if id, err = ir.ParseIdentity(identity); err != nil {
		return out.Fail("E_IDENTITY", "invalid identity", err)
	}

	records, closeFn, err := opts.openRecords()
	if err != nil {
		return err
	}
	defer closeFn()

	if opts.Address == "" {
		if addr, _, err = records.DeriveAddress(id[:]); err != nil {
			return out.Fail("E_IDENTITY", "derive address", err)
		}
	}

	rec, acc, err := records.Lookup(cmd.Context(), addr)
	if errors.Is(err, record.ErrSlotNotFound) {
		return out.Fail("E_NOT_FOUND", "no slot", err)
	}
	if err != nil {
		return out.Fail("E_LOOKUP", "lookup failed", err)
	}

	return out.Success(ShowOutput{
		Address:   acc.Address.String(),
		Owner:     acc.Owner.String(),
		Payer:     acc.Payer.String(),
		Lamports:  acc.Lamports,
		Empty:     rec.IsEmpty(),
		EventType: rec.EventType.String(),
		EventCode: uint8(rec.EventType),
		Timestamp: rec.Timestamp,
		Proof:     hex.EncodeToString(rec.Proof),
	})
}
