package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/proofslot/internal/engine"
	"github.com/roach88/proofslot/internal/ir"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Proof     string // hex-encoded proof
	ProofFile string // file holding raw proof bytes
	EventType string // catalog name or decimal code
	Payer     string // base58 payer identity, defaults to the submitter
}

// SubmitOutput is the result of an accepted submission.
type SubmitOutput struct {
	SubmissionID string `json:"submission_id"`
	Submitter    string `json:"submitter"`
	Payer        string `json:"payer"`
	Address      string `json:"address"`
	Bump         uint8  `json:"bump"`
	Created      bool   `json:"created"`
	RentCharged  uint64 `json:"rent_charged"`
	EventType    string `json:"event_type"`
	ProofLen     int    `json:"proof_len"`
	Timestamp    int64  `json:"timestamp"`
}

func (o SubmitOutput) String() string {
	var b strings.Builder
	action := "updated"
	if o.Created {
		action = "created"
	}
	fmt.Fprintf(&b, "Slot %s %s (bump %d)\n", o.Address, action, o.Bump)
	fmt.Fprintf(&b, "  submission: %s\n", o.SubmissionID)
	fmt.Fprintf(&b, "  event type: %s\n", o.EventType)
	fmt.Fprintf(&b, "  proof:      %d bytes\n", o.ProofLen)
	fmt.Fprintf(&b, "  timestamp:  %d", o.Timestamp)
	if o.Created {
		fmt.Fprintf(&b, "\n  rent:       %d lamports charged to %s", o.RentCharged, o.Payer)
	}
	return b.String()
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <identity>",
		Short: "Store a proof in the identity's slot",
		Long: `Store a proof record in the slot derived from the submitter identity.

The first submission allocates the slot and charges rent to the payer.
Later submissions overwrite the record in place.

Exit codes:
  0 - Proof stored
  2 - Command error (bad flags, database cannot open)
  3 - Rejected (proof too large, payer cannot fund, malformed identity)
  4 - Storage at the slot address is not a proof record

Examples:
  proofslot submit 4Nd1m... --proof 0a0b0c --event-type spam
  proofslot submit 4Nd1m... --proof-file proof.bin --payer 9xQe...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Proof, "proof", "", "proof bytes as hex")
	cmd.Flags().StringVar(&opts.ProofFile, "proof-file", "", "file holding raw proof bytes")
	cmd.Flags().StringVar(&opts.EventType, "event-type", ir.EventPhishing.String(), "event type name or code (0-255)")
	cmd.Flags().StringVar(&opts.Payer, "payer", "", "payer identity (defaults to the submitter)")
	cmd.MarkFlagsMutuallyExclusive("proof", "proof-file")
	cmd.MarkFlagsOneRequired("proof", "proof-file")

	return cmd
}

func runSubmit(opts *SubmitOptions, identity string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	proof, err := opts.readProof()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid proof", err)
	}
	eventType, err := ir.ParseEventType(opts.EventType)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid event type", err)
	}

	submitter, err := ir.ParseIdentity(identity)
	if err != nil {
		return out.Fail("E_IDENTITY", "invalid submitter", err)
	}
	payer := submitter
	if opts.Payer != "" {
		if payer, err = ir.ParseIdentity(opts.Payer); err != nil {
			return out.Fail("E_IDENTITY", "invalid payer", err)
		}
	}

	records, closeFn, err := opts.openRecords()
	if err != nil {
		return err
	}
	defer closeFn()

	handler := engine.New(records, engine.WithLogger(opts.Logger))
	receipt, err := handler.Submit(cmd.Context(), engine.Submission{
		Submitter: submitter.Bytes(),
		Payer:     payer.Bytes(),
		Proof:     proof,
		EventType: eventType,
	})
	if err != nil {
		return out.Fail("E_SUBMIT", "submission failed", err)
	}

	return out.Success(SubmitOutput{
		SubmissionID: receipt.SubmissionID,
		Submitter:    submitter.String(),
		Payer:        payer.String(),
		Address:      receipt.Address.String(),
		Bump:         receipt.Bump,
		Created:      receipt.Created,
		RentCharged:  receipt.RentCharged,
		EventType:    receipt.Record.EventType.String(),
		ProofLen:     len(receipt.Record.Proof),
		Timestamp:    receipt.Record.Timestamp,
	})
}

// readProof returns the proof from --proof or --proof-file.
func (o *SubmitOptions) readProof() ([]byte, error) {
	if o.ProofFile != "" {
		data, err := os.ReadFile(o.ProofFile)
		if err != nil {
			return nil, fmt.Errorf("read proof file: %w", err)
		}
		return data, nil
	}
	proof, err := hex.DecodeString(strings.TrimPrefix(o.Proof, "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode proof hex: %w", err)
	}
	return proof, nil
}
