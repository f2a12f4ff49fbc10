// Command reportgen serves user-defined report types and their records over
// HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reportgen/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// v resolves configuration for every command: flags, then env, then defaults.
var v = viper.New()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "reportgen",
	Short:         "reportgen manages user-defined report types and their records",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("database-driver", "", "database driver: postgres or sqlite")
	flags.String("postgres-uri", "", "postgres connection string")
	flags.String("sqlite-path", "", "sqlite database file")
	flags.String("log-mode", "", "development or production")

	mustBind(v.BindPFlag(config.KeyDatabaseDriver, flags.Lookup("database-driver")))
	mustBind(v.BindPFlag(config.KeyPostgresURI, flags.Lookup("postgres-uri")))
	mustBind(v.BindPFlag(config.KeySQLitePath, flags.Lookup("sqlite-path")))
	mustBind(v.BindPFlag(config.KeyLogMode, flags.Lookup("log-mode")))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reportgen " + version)
	},
}
