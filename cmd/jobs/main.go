package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/one-system/case-service/internal/config"
	"github.com/one-system/case-service/internal/domain"
	"github.com/one-system/case-service/internal/events"
	"github.com/one-system/case-service/internal/ingest"
	"github.com/one-system/case-service/internal/observability"
	"github.com/one-system/case-service/internal/persistence"
	"github.com/one-system/case-service/internal/repository"
	"github.com/one-system/case-service/internal/service"
)

// runtime bundles everything a job command needs.
type runtime struct {
	cfg        *config.Config
	logger     *zap.Logger
	pg         *persistence.Postgres
	redis      *persistence.Redis
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
}

func (r *runtime) close() {
	r.redis.Close()
	r.pg.Close()
	_ = r.logger.Sync()
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	redis := persistence.NewRedis(cfg.Redis, logger)
	return &runtime{
		cfg:        cfg,
		logger:     logger,
		pg:         pg,
		redis:      redis,
		metrics:    observability.NewMetrics(),
		dispatcher: events.NewInMemoryDispatcher(),
	}, nil
}

func (r *runtime) slaService() *service.SLAService {
	pool := r.pg.PoolHandle()
	return service.NewSLAService(service.SLADependencies{
		ConfigRepo: repository.NewSLARepository(pool),
		CaseRepo:   repository.NewCaseRepository(pool),
		Redis:      r.redis.Client,
		CacheTTL:   r.cfg.Scheduler.SLAConfigCacheTTL(),
		Dispatcher: r.dispatcher,
		Logger:     r.logger,
		Metrics:    r.metrics,
	})
}

func (r *runtime) pipeline() (*ingest.Pipeline, error) {
	mappings, err := ingest.LoadMappingConfig(r.cfg.Ingest.MappingPath)
	if err != nil {
		return nil, err
	}
	pool := r.pg.PoolHandle()
	return ingest.NewPipeline(ingest.PipelineDependencies{
		Mappings:      mappings,
		CaseRepo:      repository.NewCaseRepository(pool),
		ReferenceRepo: repository.NewReferenceRepository(pool),
		Allocator:     service.NewSequenceService(repository.NewSequenceRepository(pool), r.cfg.Case),
		Dispatcher:    r.dispatcher,
		Logger:        r.logger,
		Metrics:       r.metrics,
		EraYearOffset: r.cfg.Case.EraYearOffset,
	}), nil
}

func newIngestCmd() *cobra.Command {
	var source string
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a batch of raw records from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			var records []map[string]any
			if err := json.Unmarshal(raw, &records); err != nil {
				return fmt.Errorf("parse batch file: %w", err)
			}

			pipeline, err := rt.pipeline()
			if err != nil {
				return err
			}
			result, err := pipeline.Run(ctx, domain.SourceChannel(strings.ToUpper(source)), records)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "source channel (LINE, CALL_1146)")
	cmd.Flags().StringVar(&file, "file", "", "path to a JSON array of raw records")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute-sla",
		Short: "Re-derive and persist the overdue tier of every active case",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.slaService().BulkRecompute(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("evaluated=%d updated=%d escalated=%d\n",
				result.Evaluated, result.Updated, result.Escalated)
			return nil
		},
	}
}

func newRefreshSummaryCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "refresh-summary",
		Short: "Rebuild the daily summary rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			summary := service.NewSummaryService(repository.NewSummaryRepository(rt.pg.PoolHandle()), rt.logger)
			if day == "" {
				rows, err := summary.RefreshRecent(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("rows=%d\n", rows)
				return nil
			}
			parsed, err := time.Parse("2006-01-02", day)
			if err != nil {
				return fmt.Errorf("invalid --day: %w", err)
			}
			rows, err := summary.RefreshDay(ctx, parsed)
			if err != nil {
				return err
			}
			fmt.Printf("rows=%d\n", rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day to rebuild (YYYY-MM-DD); defaults to today and yesterday")
	return cmd
}

func main() {
	root := &cobra.Command{
		Use:   "jobs",
		Short: "Operational jobs for the case service",
	}
	root.AddCommand(newIngestCmd(), newRecomputeCmd(), newRefreshSummaryCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
