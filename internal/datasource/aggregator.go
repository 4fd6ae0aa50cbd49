package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/etfdj/pkg/models"
	"github.com/seenimoa/etfdj/pkg/utils"
)

// DefaultConcurrency is the number of tickers FetchMany works on at once.
const DefaultConcurrency = 4

// Aggregator runs the five report extractors for a ticker and assembles one
// models.ETFReport.
type Aggregator struct {
	client      *Client
	logger      *zap.Logger
	failFast    bool
	concurrency int
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the logger for degraded sections and completed reports.
func WithLogger(logger *zap.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFailFast makes the first failing section abort the report instead of
// degrading it.
func WithFailFast(failFast bool) AggregatorOption {
	return func(a *Aggregator) {
		a.failFast = failFast
	}
}

// WithConcurrency bounds the FetchMany worker pool.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAggregator creates an aggregator over client.
func NewAggregator(client *Client, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		client:      client,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Client returns the underlying page client for direct access.
func (a *Aggregator) Client() *Client { return a.client }

// FetchAll fetches the five reports for ticker in order. By default a failing
// section is left empty and its error recorded in ETFReport.Errors, so the
// report always carries all five sections. With fail-fast the first error is
// returned together with the partial report.
func (a *Aggregator) FetchAll(ctx context.Context, ticker string) (*models.ETFReport, error) {
	return a.fetchAll(ctx, ticker, a.logger)
}

func (a *Aggregator) fetchAll(ctx context.Context, ticker string, log *zap.Logger) (*models.ETFReport, error) {
	symbol := utils.NormalizeTicker(ticker)
	start := time.Now()

	rep := &models.ETFReport{
		Ticker:           symbol,
		Holdings:         emptyHoldings(),
		RiskAnalysis:     models.RiskAnalysis{},
		ReturnComparison: emptyComparison(),
		ReturnTrends:     emptyTrends(),
		FetchedAt:        utils.NowTaipei(),
	}

	steps := []struct {
		section models.Section
		run     func() error
	}{
		{models.SectionBasicInfo, func() (err error) {
			rep.BasicInfo, err = a.client.GetBasicInfo(ctx, symbol)
			return err
		}},
		{models.SectionHoldings, func() (err error) {
			rep.Holdings, err = a.client.GetHoldings(ctx, symbol)
			return err
		}},
		{models.SectionRiskAnalysis, func() (err error) {
			rep.RiskAnalysis, err = a.client.GetRiskAnalysis(ctx, symbol)
			return err
		}},
		{models.SectionReturnComparison, func() (err error) {
			rep.ReturnComparison, err = a.client.GetReturnComparison(ctx, symbol)
			return err
		}},
		{models.SectionReturnTrends, func() (err error) {
			rep.ReturnTrends, err = a.client.GetReturnTrends(ctx, symbol)
			return err
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := step.run()
		if err == nil {
			continue
		}
		if a.failFast {
			return rep, fmt.Errorf("%s: %w", step.section, err)
		}
		if rep.Errors == nil {
			rep.Errors = make(map[models.Section]string)
		}
		rep.Errors[step.section] = err.Error()
		log.Warn("section degraded",
			zap.String("ticker", symbol),
			zap.String("section", string(step.section)),
			zap.Error(err),
		)
	}

	log.Info("etf report assembled",
		zap.String("ticker", symbol),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("degraded_sections", len(rep.Errors)),
	)
	return rep, nil
}

// FetchMany runs FetchAll for each ticker on a bounded worker pool. Results
// keep the input order. All workers share the client's rate limiter.
func (a *Aggregator) FetchMany(ctx context.Context, tickers []string) ([]*models.ETFReport, error) {
	log := a.logger.With(zap.String("run_id", uuid.NewString()))
	log.Info("batch started", zap.Int("tickers", len(tickers)), zap.Int("concurrency", a.concurrency))
	start := time.Now()

	reports := make([]*models.ETFReport, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, ticker := range tickers {
		g.Go(func() error {
			rep, err := a.fetchAll(gctx, ticker, log)
			reports[i] = rep
			if err != nil {
				return fmt.Errorf("%s: %w", ticker, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		log.Error("batch failed", zap.Error(err))
	} else {
		log.Info("batch finished", zap.Duration("elapsed", time.Since(start)))
	}
	return reports, err
}

// FetchSection fetches a single report. The returned value is the section's
// model type: models.BasicInfo, models.Holdings, models.RiskAnalysis,
// models.ReturnComparison or models.ReturnTrends.
func (a *Aggregator) FetchSection(ctx context.Context, ticker string, section models.Section) (any, error) {
	switch section {
	case models.SectionBasicInfo:
		return a.client.GetBasicInfo(ctx, ticker)
	case models.SectionHoldings:
		return a.client.GetHoldings(ctx, ticker)
	case models.SectionRiskAnalysis:
		return a.client.GetRiskAnalysis(ctx, ticker)
	case models.SectionReturnComparison:
		return a.client.GetReturnComparison(ctx, ticker)
	case models.SectionReturnTrends:
		return a.client.GetReturnTrends(ctx, ticker)
	}
	return nil, fmt.Errorf("unknown section %q", section)
}
