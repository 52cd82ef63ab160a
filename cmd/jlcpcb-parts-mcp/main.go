package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "jlcpcb-parts-mcp",
	Short: "Read-only MCP server for the JLCPCB parts catalog",
	Long: `jlcpcb-parts-mcp serves a pre-built jlcparts SQLite database to
tool-calling clients over MCP (stdio and streamable HTTP).

Data comes from the JLC PCB SMD Assembly Component Catalogue
(https://github.com/yaqwsx/jlcparts); set JLCPCB_DB_PATH to the
database file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(manufacturersCmd)
	rootCmd.AddCommand(partsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
