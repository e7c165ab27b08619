package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"obd-backend/diagnostics"
	"obd-backend/history"
	"obd-backend/openai"
	"obd-backend/pkg/log"
	"obd-backend/server"
	"obd-backend/suggestion"
)

// writeSlack is added to the suggestion deadline for the HTTP write timeout.
const writeSlack = 30 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagnosis HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(v)
			if err != nil {
				return err
			}
			defer log.Sync()
			gin.SetMode(cfg.Server.GinMode)

			fs := afero.NewOsFs()
			table, err := loadTable(fs, cfg.CodesFile)
			if err != nil {
				return err
			}

			ai := openai.NewClient(openai.Config{
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.Model,
			})
			if !ai.Configured() {
				return errors.New("OPENAI_API_KEY is not set")
			}
			suggester := suggestion.NewClient(ai, suggestion.Policy{
				PollInterval:    cfg.Suggestion.PollInterval,
				MaxWait:         cfg.Suggestion.MaxWait,
				PollRetries:     cfg.Suggestion.PollRetries,
				FallbackOnError: cfg.Suggestion.FallbackOnError,
			})

			svc := diagnostics.NewService(table, suggester, history.NewStore(), history.NewReporter(fs, cfg.ReportPath))
			router := server.NewRouter(server.Options{AllowOrigins: cfg.CORS.AllowOrigins})
			diagnostics.NewHandler(svc).RegisterRoutes(router)

			log.Info("diagnosis service ready",
				zap.String("model", ai.Model),
				zap.Duration("max_wait", cfg.Suggestion.MaxWait),
				zap.Strings("cors", cfg.CORS.AllowOrigins))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(cfg.Server.Addr, router, cfg.Suggestion.MaxWait+writeSlack).Run(ctx)
		},
	}
	c.Flags().String("addr", ":5000", "Listen address")
	c.Flags().String("report", "diagnostic_report.txt", "Report file written by /generate_report")
	_ = v.BindPFlag("server.addr", c.Flags().Lookup("addr"))
	_ = v.BindPFlag("report.path", c.Flags().Lookup("report"))
	return c
}
