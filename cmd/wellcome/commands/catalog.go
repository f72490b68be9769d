package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wellcome-app/wizard/codec"
)

// catalog: print the catalogs in use, or export them to a file that
// CATALOG_PATH can point at.
func catalogCmd() *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print or export the selectable catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := appCtx.catalog

			if export != "" {
				c, err := codec.ForPath(export)
				if err != nil {
					return err
				}
				b, err := c.Marshal(cat)
				if err != nil {
					return err
				}
				if err := os.WriteFile(export, b, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "catalog written to %s (%s)\n", export, c.Name())
				return nil
			}

			out := cmd.OutOrStdout()
			for _, section := range []struct {
				name   string
				labels []string
			}{
				{"Tipos de evento", cat.EventTypes},
				{"Culinárias", cat.Cuisines},
				{"Comodidades", cat.Facilities},
				{"Regras", cat.Rules},
			} {
				fmt.Fprintf(out, "%s (%d)\n", section.name, len(section.labels))
				for _, l := range section.labels {
					fmt.Fprintf(out, "  - %s\n", l)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write the catalog to this file (.json, .msgpack or .pb)")
	return cmd
}
