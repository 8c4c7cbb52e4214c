package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xhad/smartnotes/pkg/metrics"
	"github.com/xhad/smartnotes/server"
	"go.uber.org/zap"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.validConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			collector := metrics.NewCollector("smartnotes")

			pipelineStages, err := buildStages(cfg, stageOptions{logger: logger, metrics: collector})
			if err != nil {
				return err
			}

			notes, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to open note store: %w", err)
			}
			defer notes.Close()

			sessions, err := newSessions(cfg)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Addr:           cfg.Server.Addr,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				AllowedOrigins: cfg.Server.AllowedOrigins,
			}, server.Deps{
				Store:        notes,
				Sessions:     sessions,
				Upload:       pipelineStages.upload,
				YouTube:      pipelineStages.youtube,
				Live:         pipelineStages.live,
				Orchestrator: pipelineStages.orchestrator,
				Metrics:      collector,
				Logger:       logger.Named("http"),
			})
			if err != nil {
				return err
			}

			logger.Info("smartnotes configured",
				zap.String("llm_provider", cfg.LLM.Provider),
				zap.String("llm_model", cfg.LLM.Model),
				zap.String("database", cfg.Database.Driver))

			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
