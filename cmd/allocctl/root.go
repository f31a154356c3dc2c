package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/noah-isme/exam-room-api/internal/app"
	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/pkg/config"
	"github.com/noah-isme/exam-room-api/pkg/logger"
)

type allocator interface {
	Allocate(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error)
	Preview(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error)
	CheckConflicts(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictReport, error)
	CancelCourse(ctx context.Context, req dto.CancelAllocationRequest) (*dto.CancelAllocationResponse, error)
}

type summarizer interface {
	DailySummary(ctx context.Context, query dto.SummaryQuery) (*dto.DailySummaryResponse, bool, error)
	Statistics(ctx context.Context, query dto.StatisticsQuery) (*dto.StatisticsResponse, bool, error)
}

// backend is what a command runs against. close releases it.
type backend struct {
	allocations allocator
	summaries   summarizer
	close       func()
}

type globalOptions struct {
	strategy string
	json     bool
}

type backendFactory func(ctx context.Context, opts globalOptions) (*backend, error)

func connectBackend(ctx context.Context, opts globalOptions) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.strategy != "" {
		cfg.Allocation.Strategy = opts.strategy
	}
	cfg.Metrics.Enabled = false

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	container, err := app.New(cfg, logr)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}
	container.Start(ctx)

	return &backend{
		allocations: container.Allocations,
		summaries:   container.Summaries,
		close: func() {
			container.Close()
			_ = logr.Sync()
		},
	}, nil
}

func newRootCmd(factory backendFactory) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "allocctl",
		Short:         "Exam room allocation operator tool",
		Long:          `Runs allocation batches, previews, conflict checks and summaries against the allocation database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.strategy, "strategy", "", "Override ALLOCATION_STRATEGY (greedy or exact)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print raw JSON instead of a table")

	open := func(cmd *cobra.Command) (*backend, error) {
		if opts.strategy != "" && opts.strategy != config.StrategyGreedy && opts.strategy != config.StrategyExact {
			return nil, errors.New("--strategy must be greedy or exact")
		}
		return factory(cmd.Context(), *opts)
	}

	root.AddCommand(
		newBatchCmd("allocate", "Allocate rooms for an exam slot and save the batch", opts, open, func(b *backend) batchFunc { return b.allocations.Allocate }),
		newBatchCmd("preview", "Show the batch an allocation would produce without saving it", opts, open, func(b *backend) batchFunc { return b.allocations.Preview }),
		newConflictsCmd(opts, open),
		newCancelCmd(opts, open),
		newSummaryCmd(opts, open),
		newStatsCmd(opts, open),
	)
	return root
}
