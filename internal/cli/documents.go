package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parisxmas/OxiDB/OxiSign/internal/documents"
)

func (a *app) documentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List the policy documents available for signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			catalog, err := documents.Load(cfg.DocumentsDir)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTITLE")
			for _, d := range catalog.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", d.ID, d.Name, d.Title)
			}
			return tw.Flush()
		},
	}
}
