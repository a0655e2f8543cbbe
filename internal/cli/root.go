// Package cli wires configuration, storage and the HTTP stack behind the
// oxisign command.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parisxmas/OxiDB/OxiSign/internal/config"
	"github.com/parisxmas/OxiDB/OxiSign/internal/handler"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	out     io.Writer
}

// NewRootCommand builds the command tree. Output goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	config.SetDefaults(a.v)

	root := &cobra.Command{
		Use:           "oxisign",
		Short:         "OxiSign - policy acknowledgment and comprehension tracking",
		Version:       handler.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(a.envFile)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file (default .env when present)")
	root.PersistentFlags().String("store", "", "storage backend: memory, sqlite, oxidb or postgres")
	_ = a.v.BindPFlag("store_driver", root.PersistentFlags().Lookup("store"))

	root.AddCommand(a.serveCmd())
	root.AddCommand(a.purgeCmd())
	root.AddCommand(a.adminTokenCmd())
	root.AddCommand(a.documentsCmd())
	return root
}

func (a *app) config() (*config.Config, error) {
	return config.Load(a.v, a.cfgFile)
}

func Execute() {
	if err := NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
