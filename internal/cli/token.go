package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSign/internal/auth"
)

func (a *app) adminTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint a bearer token for the admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.AdminAPIKey == "" {
				return errors.New("ADMIN_API_KEY is not set")
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			token, err := auth.GenerateToken(cfg.AdminAPIKey, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
