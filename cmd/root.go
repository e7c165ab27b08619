package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"obd-backend/codes"
	"obd-backend/config"
	"obd-backend/pkg/log"
)

// NewRootCmd builds the command tree around v so tests can use a private
// viper instance.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "obd-backend",
		Short:         "OBD2 diagnostic assistant API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	root.PersistentFlags().Bool("debug", false, "Enable debug mode")
	root.PersistentFlags().String("codes", "OBD2.csv", "CSV file with code and description columns")

	_ = v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("codes.file", root.PersistentFlags().Lookup("codes"))

	root.AddCommand(newServeCmd(v), newLookupCmd(v), newCodesCmd(v))
	return root
}

func Execute() {
	if err := NewRootCmd(viper.GetViper()).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup resolves the configuration and installs the logger every command
// writes to.
func setup(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	log.InitLogger(cfg.Debug)
	return cfg, nil
}

// loadTable loads the code table; a missing file is logged and yields an
// empty table, a malformed one is returned as an error.
func loadTable(fs afero.Fs, path string) (*codes.Table, error) {
	table, err := codes.Load(fs, path)
	switch {
	case errors.Is(err, codes.ErrSourceNotFound):
		log.Error("code table not found, continuing with an empty table", zap.String("file", path), zap.Error(err))
		return table, nil
	case err != nil:
		return nil, err
	}
	log.Info("code table loaded", zap.String("file", path), zap.Int("codes", table.Len()))
	return table, nil
}
