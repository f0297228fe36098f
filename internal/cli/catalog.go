package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"assessment-service/internal/catalog"
	"assessment-service/internal/config"
	"assessment-service/internal/infra/postgres"
)

// NewCatalogCmd prints the resolved catalog; `catalog import` stores a YAML catalog in Postgres.
func NewCatalogCmd(configPath *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the active question catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			loader, err := catalogLoader(cfg, nil)
			if err != nil {
				return err
			}
			id := cfg.Catalog.ID
			if id == "" {
				id = defaultCatalogID
			}
			c, err := loader.LoadCatalog(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			case "yaml":
				enc := yaml.NewEncoder(out)
				defer enc.Close()
				return enc.Encode(c)
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.AddCommand(newCatalogImportCmd(configPath))
	return cmd
}

func newCatalogImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a YAML catalog and store it in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			c := catalog.Default()
			if file != "" {
				if c, err = catalog.LoadFile(file); err != nil {
					return err
				}
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := postgres.NewCatalogStore(pool).SaveCatalog(cmd.Context(), c); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported catalog %s (%d questions)\n", c.ID, c.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML (defaults to the embedded catalog)")
	return cmd
}
