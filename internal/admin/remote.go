package admin

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/medlogbook/internal/server/auth"
	"github.com/spf13/cobra"
)

func (a *App) newTokenCmd() *cobra.Command {
	var (
		actorID string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for an actor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = a.cfg.AccessTokenValidityDuration
			}
			token, err := auth.GenerateToken(actorID, []byte(a.cfg.SecretKey), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id to put in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func (a *App) newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.dial(a.cfg.EndpointAddrGRPC, "")
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("ping %s: %w", a.cfg.EndpointAddrGRPC, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

// dialAs connects with a freshly minted token for actorID.
func (a *App) dialAs(actorID string) (logbookClient, error) {
	token, err := auth.GenerateToken(actorID, []byte(a.cfg.SecretKey), 5*time.Minute)
	if err != nil {
		return nil, err
	}
	return a.dial(a.cfg.EndpointAddrGRPC, token)
}

func (a *App) newAutoReviewCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "auto-review",
		Short: "Show or change per-category auto-review",
	}
	cmd.PersistentFlags().StringVar(&as, "as", "", "reviewer actor id to act as")
	_ = cmd.MarkPersistentFlagRequired("as")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List auto-review flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.dialAs(as)
			if err != nil {
				return err
			}
			defer c.Close()

			settings, err := c.GetAutoReview(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(settings))
			for n := range settings {
				names = append(names, n)
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %t\n", n, settings[n])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set CATEGORY true|false",
		Short: "Enable or disable auto-review for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid flag value %q", args[1])
			}

			c, err := a.dialAs(as)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.SetAutoReview(cmd.Context(), args[0], enabled)
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%s: %s", res.ErrorKind, res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s auto-review %t\n", args[0], enabled)
			return nil
		},
	})

	return cmd
}

// newSmokeCmd creates a throwaway DRAFT entry as a student to check the
// write path end to end.
func (a *App) newSmokeCmd() *cobra.Command {
	var (
		as       string
		category string
	)

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Create a test DRAFT entry as a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.dialAs(as)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.CreateEntry(cmd.Context(), category, json.RawMessage(`{"note":"logbookadm smoke test"}`))
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("%s: %s", res.ErrorKind, res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s #%d (%s)\n", res.Entry.ID, res.Entry.SequenceNo, res.Entry.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "student actor id")
	cmd.Flags().StringVar(&category, "category", "procedures", "entry category")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
