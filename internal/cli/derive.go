package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/proofslot/internal/ir"
)

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	Bump      uint8
	Namespace string
}

// DeriveOutput is a derived slot address.
type DeriveOutput struct {
	Namespace string `json:"namespace"`
	Identity  string `json:"identity"`
	Address   string `json:"address"`
	Bump      uint8  `json:"bump"`
}

func (o DeriveOutput) String() string {
	return fmt.Sprintf("%s (bump %d, namespace %q)", o.Address, o.Bump, o.Namespace)
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive <identity>",
		Short: "Compute the slot address for an identity",
		Long: `Compute the slot address for an identity without touching storage.

With --bump, the address is recomputed for that bump instead of searched,
which is how a reader that stored the bump verifies an address.

Examples:
  proofslot derive 4Nd1m...
  proofslot derive 4Nd1m... --bump 254
  proofslot derive 4Nd1m... --namespace audit`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint8Var(&opts.Bump, "bump", 0, "recompute the address for this bump")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "namespace tag (defaults to config)")

	return cmd
}

func runDerive(opts *DeriveOptions, identity string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	ns := opts.Namespace
	if ns == "" && opts.Config != nil {
		ns = opts.Config.Namespace
	}
	if ns == "" {
		ns = ir.DefaultNamespace
	}

	id, err := ir.ParseIdentity(identity)
	if err != nil {
		return out.Fail("E_IDENTITY", "invalid identity", err)
	}

	result := DeriveOutput{Namespace: ns, Identity: id.String()}
	if cmd.Flags().Changed("bump") {
		addr, err := ir.CreateAddress(ns, id[:], opts.Bump)
		if err != nil {
			return out.Fail("E_BUMP", fmt.Sprintf("bump %d", opts.Bump), err)
		}
		result.Address, result.Bump = addr.String(), opts.Bump
	} else {
		addr, bump, err := ir.DeriveAddress(ns, id[:])
		if err != nil {
			return out.Fail("E_DERIVE", "derive address", err)
		}
		result.Address, result.Bump = addr.String(), bump
	}

	return out.Success(result)
}
