package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"devoverflow/internal/utils"
	"devoverflow/simulator"

	"github.com/spf13/cobra"
)

var (
	config = simulator.DefaultConfig()
	debug  bool

	rootCmd = &cobra.Command{
		Use:   "simulator",
		Short: "Generate concurrent Q&A traffic against a running engine",
		RunE:  runSimulation,
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&config.EngineURL, "url", config.EngineURL, "engine base URL")
	f.IntVar(&config.NumUsers, "users", config.NumUsers, "number of simulated users")
	f.DurationVar(&config.SimulationTime, "duration", config.SimulationTime, "how long to generate traffic")
	f.Float64Var(&config.AskFrequency, "ask", config.AskFrequency, "questions per user per minute")
	f.Float64Var(&config.AnswerFrequency, "answer", config.AnswerFrequency, "answers per user per minute")
	f.Float64Var(&config.VoteFrequency, "vote", config.VoteFrequency, "votes per user per minute")
	f.Float64Var(&config.SaveFrequency, "save", config.SaveFrequency, "collection toggles per user per minute")
	f.Float64Var(&config.EditFrequency, "edit", config.EditFrequency, "edits per user per minute")
	f.Float64Var(&config.BrowseFrequency, "browse", config.BrowseFrequency, "page views per user per minute")
	f.Float64Var(&config.RequestsPerSecond, "rps", config.RequestsPerSecond, "request rate cap, 0 for none")
	f.IntVar(&config.Workers, "workers", config.Workers, "concurrent requests per activity")
	f.BoolVar(&debug, "debug", false, "log every failed action")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger := utils.NewLogger(os.Stdout, "pretty", debug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.SimulationTime)
	defer cancel()

	sim := simulator.NewSimulator(config, logger)
	if err := sim.Run(ctx); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	m := sim.GetMetrics()
	logger.Info("simulation completed",
		"users", m.TotalUsers,
		"questions", m.TotalQuestions,
		"answers", m.TotalAnswers,
		"votes", m.TotalVotes,
		"saves", m.TotalSaves,
		"edits", m.TotalEdits,
		"avg_latency", m.AverageLatency,
		"errors", m.ErrorCount,
		"errors_by_kind", m.ErrorsByKind,
	)
	return nil
}
