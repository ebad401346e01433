package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"Seesaw/internal/notifier"
	"Seesaw/internal/scheduler"
	"Seesaw/internal/server"
)

var runOnStart bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch market snapshots and FX, save positions and print the overview",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sched := scheduler.NewScheduler(cmd.Context(), a.eng, newCollector(a.cfg), nil, a.cfg.Data.StateFile)
		st, err := sched.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(notifier.FormatOverview(st))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the refresh scheduler, Telegram alerts and the HTTP API until stopped",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// Context for graceful shutdown
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var n notifier.Notifier
		var tn *notifier.TelegramNotifier
		if a.cfg.Telegram.BotToken != "" {
			tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy)
			n = tn
		}

		sched := scheduler.NewScheduler(ctx, a.eng, newCollector(a.cfg), n, a.cfg.Data.StateFile)
		if err := sched.Register(a.cfg.Schedule.RefreshCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if tn != nil {
			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Info().Msg("telegram polling started")
		}

		srv := server.New(a.cfg.Server.Addr, a.eng)
		srv.Start()

		if runOnStart {
			go func() {
				if _, err := sched.Refresh(ctx); err != nil {
					log.Error().Err(err).Msg("initial refresh failed")
				}
			}()
		}

		log.Info().Str("cron", a.cfg.Schedule.RefreshCron).Msg("seesaw is running, press Ctrl+C to stop")

		// Wait for shutdown signal
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("shutdown signal received, stopping")
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Refresh once immediately")
	rootCmd.AddCommand(refreshCmd, watchCmd)
}
