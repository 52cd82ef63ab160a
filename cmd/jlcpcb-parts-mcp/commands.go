package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/billmccartney/jlcpcb-parts-mcp/internal/catalog"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/config"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/render"
)

// openStore opens the configured catalog for a one-shot CLI query.
func openStore() (*catalog.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg.Catalog.DBPath)
}

// --- categories ---

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List part categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		categories, err := store.Categories(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), render.CategoriesTable(categories))
		return nil
	},
}

// --- manufacturers ---

var manufacturersCmd = &cobra.Command{
	Use:   "manufacturers [fragment]",
	Short: "List manufacturers, or search by partial name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var manufacturers []catalog.Manufacturer
		if len(args) == 1 {
			manufacturers, err = store.SearchManufacturers(cmd.Context(), args[0])
		} else {
			manufacturers, err = store.Manufacturers(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("querying manufacturers: %w", err)
		}

		if len(manufacturers) == 0 {
			printWarning("No manufacturers found")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.ManufacturersTable(manufacturers))
		return nil
	},
}

// --- parts ---

var partsCmd = &cobra.Command{
	Use:   "parts",
	Short: "Search parts by category and optional filters",
	Long: `Search parts by category and optional filters.

Examples:
  jlcpcb-parts-mcp parts --category 46 --package 0402 --basic
  jlcpcb-parts-mcp parts --category 46 --description "%10k%"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		categoryID, _ := cmd.Flags().GetInt("category")
		if categoryID < 1 {
			return fmt.Errorf("--category is required and must be >= 1")
		}

		filter := catalog.SearchFilter{CategoryID: categoryID}
		if cmd.Flags().Changed("manufacturer") {
			id, _ := cmd.Flags().GetInt("manufacturer")
			if id < 1 {
				return fmt.Errorf("--manufacturer must be >= 1")
			}
			filter.ManufacturerID = &id
		}
		filter.ManufacturerPN, _ = cmd.Flags().GetString("mfr-pn")
		filter.Description, _ = cmd.Flags().GetString("description")
		filter.Package, _ = cmd.Flags().GetString("package")

		// --basic/--preferred are tri-state: only a flag the caller
		// actually set contributes a predicate.
		if cmd.Flags().Changed("basic") {
			v, _ := cmd.Flags().GetBool("basic")
			filter.Basic = &v
		}
		if cmd.Flags().Changed("preferred") {
			v, _ := cmd.Flags().GetBool("preferred")
			filter.Preferred = &v
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		components, err := store.SearchComponents(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("searching parts: %w", err)
		}

		if len(components) == 0 {
			printWarning("No parts matched")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.ComponentsTable(components))
		printSuccess("%d part(s)", len(components))
		return nil
	},
}

func init() {
	partsCmd.Flags().Int("category", 0, "category ID (required)")
	partsCmd.Flags().Int("manufacturer", 0, "manufacturer ID")
	partsCmd.Flags().String("mfr-pn", "", "manufacturer part number, SQLite LIKE pattern")
	partsCmd.Flags().String("description", "", "description text, SQLite LIKE pattern")
	partsCmd.Flags().String("package", "", "exact package name")
	partsCmd.Flags().Bool("basic", false, "only basic (or, with =false, only extended) parts")
	partsCmd.Flags().Bool("preferred", false, "only preferred (or, with =false, only non-preferred) parts")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, kv := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, kv.Key), kv.Value)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
