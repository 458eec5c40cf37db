// rdapctl looks up RDAP registration data for domains, addresses and
// ranges, and does offline address arithmetic.
//
// Subcommands
//
//	domain <name>            registration data for a domain (--parent walks up on not-found)
//	ip <addr|cidr|a-b>       registration data for an address or range
//	lookup <query>           auto-detect address/range vs domain
//	range <cidr|a-b>         offline: bounds, CIDR split, size, reserved-space check
//	reverse <addr>           offline: reverse DNS zone of an address
//
// Configuration comes from --config (YAML or JSON) and RDAPCTL_* variables:
// RDAPCTL_UA, RDAPCTL_TIMEOUT, RDAPCTL_MAX_RETRIES, RDAPCTL_OUTPUT,
// RDAPCTL_LOG_LEVEL, RDAPCTL_DNS_BOOTSTRAP, RDAPCTL_IP_BOOTSTRAP,
// RDAPCTL_IPV4_BOOTSTRAP, RDAPCTL_IPV6_BOOTSTRAP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	rc "github.com/datum-labs/addrdap"
	"github.com/datum-labs/addrdap/internal/config"
	"github.com/datum-labs/addrdap/ipaddr"
)

var (
	flagConfig  string
	flagOutput  string
	flagCompact bool
	flagParent  bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rdapctl",
		Short:        "RDAP lookups and IP address arithmetic",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML or JSON config file")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "output format: json, yaml or text (default from config)")
	root.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compress IPv6 addresses (RFC 5952)")

	root.AddCommand(cmdDomain(), cmdIP(), cmdLookup(), cmdRange(), cmdReverse())
	return root
}

// setup loads configuration and applies command-line overrides.
func setup(cmd *cobra.Command) (*config.Config, *printer, error) {
	cfg, err := config.Load(flagConfig, os.Getenv)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flagOutput
	}
	if cmd.Flags().Changed("compact") {
		cfg.Compact = flagCompact
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	p := &printer{w: cmd.OutOrStdout(), format: cfg.Output}
	if cfg.Compact {
		p.flags = ipaddr.Compact
	}
	return cfg, p, nil
}

// newClient constructs the rdap client from cfg, logging to stderr.
func newClient(cmd *cobra.Command, cfg *config.Config) (*rc.Client, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	opts := append(cfg.ClientOptions(), rc.WithLogger(log))
	return rc.New(opts...), nil
}

func cmdDomain() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain <name>",
		Short: "Fetch domain RDAP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, err := setup(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			lookup := c.LookupDomain
			if flagParent {
				lookup = c.LookupDomainOrParent
			}
			resp, err := lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.response(resp)
		},
	}
	cmd.Flags().BoolVar(&flagParent, "parent", false, "retry with parent domains when not found")
	return cmd
}

func cmdIP() *cobra.Command {
	return &cobra.Command{
		Use:   "ip <addr|cidr|start-end>",
		Short: "Fetch IP network RDAP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, err := setup(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			resp, err := c.LookupAddressText(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.response(resp)
		},
	}
}

func cmdLookup() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <query>",
		Short: "Auto-detect and fetch RDAP (address, range or domain)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, err := setup(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd, cfg)
			if err != nil {
				return err
			}
			resp, err := c.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.response(resp)
		},
	}
}

func cmdRange() *cobra.Command {
	return &cobra.Command{
		Use:   "range <cidr|start-end|addr>",
		Short: "Show bounds, CIDR blocks and size of an address range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, err := setup(cmd)
			if err != nil {
				return err
			}
			q, err := ipaddr.ParseQuery(args[0])
			if err != nil {
				return err
			}
			r, ok := q.(ipaddr.Range)
			if !ok {
				a := q.(ipaddr.Addr)
				if r, err = ipaddr.RangeFrom(a, a); err != nil {
					return err
				}
			}
			return p.rangeInfo(r)
		},
	}
}

func cmdReverse() *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <addr>",
		Short: "Print the reverse DNS zone of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p, err := setup(cmd)
			if err != nil {
				return err
			}
			a, err := ipaddr.ParseAddr(args[0])
			if err != nil {
				return fmt.Errorf("reverse: %w", err)
			}
			return p.reverse(a)
		},
	}
}
