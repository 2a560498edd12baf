// keyctl manages aigated API keys directly against the key database. It is
// meant for operators bootstrapping a deployment; day-to-day key management
// goes through the /admin/keys endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"aigated/internal/keys"
	"aigated/pkg/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "keyctl",
		Short:         "Manage aigated API keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultDB := os.Getenv("AIGATED_KEYS_DB")
	if defaultDB == "" {
		defaultDB = "keys.db"
	}
	root.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to the key database")

	root.AddCommand(newCreateCmd(&dbPath))
	root.AddCommand(newListCmd(&dbPath))
	root.AddCommand(newRevokeCmd(&dbPath))
	root.AddCommand(newActivateCmd(&dbPath))
	root.AddCommand(newBootstrapCmd(&dbPath))
	return root
}

func openRegistry(ctx context.Context, dbPath string) (*keys.Registry, *keys.SQLStore, error) {
	store, err := keys.OpenStore(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open key store: %w", err)
	}
	return keys.NewRegistry(store), store, nil
}

func parseCaps(raw []string) ([]types.Capability, error) {
	caps := make([]types.Capability, 0, len(raw))
	for _, s := range raw {
		c, ok := types.ParseCapability(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("unknown capability: %s", s)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

func newCreateCmd(dbPath *string) *cobra.Command {
	var owner string
	var capsRaw []string
	var rateLimit int
	var windowSec int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			caps, err := parseCaps(capsRaw)
			if err != nil {
				return err
			}
			reg, store, err := openRegistry(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			pol := keys.Policy{Requests: rateLimit, Window: time.Duration(windowSec) * time.Second}
			rec, raw, err := reg.Create(cmd.Context(), owner, caps, pol)
			if err != nil {
				return err
			}
			fmt.Printf("id:     %s\n", rec.ID)
			fmt.Printf("prefix: %s\n", rec.Prefix)
			fmt.Printf("key:    %s\n", raw)
			fmt.Println("store the key now; it cannot be shown again")
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "key owner (required)")
	cmd.Flags().StringSliceVar(&capsRaw, "capabilities", nil, "granted capabilities, e.g. generate,embed")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per window (0 = unthrottled)")
	cmd.Flags().IntVar(&windowSec, "window-sec", 60, "rate limit window in seconds")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("capabilities")
	return cmd
}

func newListCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keys, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, store, err := openRegistry(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPREFIX\tOWNER\tSTATUS\tCAPABILITIES\tUSES")
			for _, rec := range recs {
				info := rec.Info()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
					info.ID, info.KeyPrefix, info.Owner, info.Status,
					strings.Join(info.Capabilities, ","), info.UsageCount)
			}
			return tw.Flush()
		},
	}
}

func newRevokeCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, store, err := openRegistry(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := reg.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("revoked", args[0])
			return nil
		},
	}
}

func newActivateCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <key-id>",
		Short: "Re-activate a revoked key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, store, err := openRegistry(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := reg.Activate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("activated", args[0])
			return nil
		},
	}
}

// newBootstrapCmd creates the initial admin key, once. Running it against a
// database that already holds an admin key is a no-op.
func newBootstrapCmd(dbPath *string) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the initial admin key if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, store, err := openRegistry(cmd.Context(), *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range recs {
				if rec.Has(types.CapAdmin) && rec.Status == keys.StatusActive {
					fmt.Println("admin key already exists:", rec.ID)
					return nil
				}
			}

			rec, raw, err := reg.Create(cmd.Context(), owner, types.Capabilities(), keys.Policy{})
			if err != nil {
				return err
			}
			fmt.Printf("id:  %s\n", rec.ID)
			fmt.Printf("key: %s\n", raw)
			fmt.Println("store the key now; it cannot be shown again")
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "admin", "owner of the bootstrap key")
	return cmd
}
