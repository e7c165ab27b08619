package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"obd-backend/codes"
	"obd-backend/pkg/log"
)

func newLookupCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup CODE...",
		Short: "Search trouble codes in the code table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := offlineTable(cmd, v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, code := range args {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, table.Search(code))
			}
			return nil
		},
	}
}

func newCodesCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "codes",
		Short: "Print the whole code table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := offlineTable(cmd, v)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(table.All())
			}
			for _, e := range table.All() {
				fmt.Fprintf(out, "%s\t%s\n", e.Code, e.Description)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return c
}

// offlineTable loads the table for the commands that run without the API.
// An empty table is reported on stderr, since every lookup would miss.
func offlineTable(cmd *cobra.Command, v *viper.Viper) (*codes.Table, error) {
	cfg, err := setup(v)
	if err != nil {
		return nil, err
	}
	defer log.Sync()
	table, err := loadTable(afero.NewOsFs(), cfg.CodesFile)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: code table %s is missing or empty\n", cfg.CodesFile)
	}
	return table, nil
}
