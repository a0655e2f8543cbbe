package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSign/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSign/internal/notify"
	"github.com/parisxmas/OxiDB/OxiSign/internal/service"
)

func (a *app) purgeCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stored signatures and quizzes",
		Long: `Delete every signature and quiz, or only those older than N days.

Examples:
  oxisign purge
  oxisign purge --older-than-days 90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			log, flush, err := logging.New(logging.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
			if err != nil {
				return err
			}
			defer flush()

			st, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			// The CLI has no delivery workers; events are only recorded.
			svc := service.NewAdminService(st, notify.NewRecorder(), notify.NewComposer(cfg.AppURL), log)
			var res *service.ClearResult
			if cmd.Flags().Changed("older-than-days") {
				res, err = svc.ClearOlderThan(cmd.Context(), days)
			} else {
				res, err = svc.ClearAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d signatures and %d quizzes\n",
				res.SignaturesCleared, res.QuizzesCleared)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "older-than-days", 0, "only delete records older than N days (1-365)")
	return cmd
}
