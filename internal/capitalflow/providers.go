package capitalflow

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/riptide/internal/contracts"
)

// FlowSource is the vendor feed for per-order main/retail flow. Only the
// detailed tier talks to it.
type FlowSource interface {
	MainFlow(ctx context.Context, symbol string) (*contracts.CapitalFlowSnapshot, error)
}

// QuoteSource supplies live level-1 snapshots with book depth.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*contracts.MarketSnapshot, error)
}

// TickSource supplies the latest snapshot reconstructed from batched or
// replayed ticks. Same shape as a live quote, different provenance.
type TickSource interface {
	LatestTick(ctx context.Context, symbol string) (*contracts.MarketSnapshot, error)
}

// AggregateSource supplies the vendor's delayed whole-session flow
// aggregate, typically scraped once after close.
type AggregateSource interface {
	SessionAggregate(ctx context.Context, symbol string) (*contracts.CapitalFlowSnapshot, error)
}

// BaselineSource supplies the historical main-flow average used as the
// anchor term in the inference formula.
type BaselineSource interface {
	FlowBaseline(ctx context.Context, symbol string) (float64, error)
}

// RealtimeDetailedProvider adapts the paid per-order feed to the chain.
type RealtimeDetailedProvider struct {
	src FlowSource
}

func NewRealtimeDetailedProvider(src FlowSource) *RealtimeDetailedProvider {
	return &RealtimeDetailedProvider{src: src}
}

func (p *RealtimeDetailedProvider) Tier() contracts.SourceTier {
	return contracts.TierRealtimeDetailed
}

func (p *RealtimeDetailedProvider) Fetch(ctx context.Context, symbol string, _ time.Time) (*contracts.CapitalFlowSnapshot, error) {
	snap, err := p.src.MainFlow(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("detailed flow %s: %w", symbol, err)
	}
	return snap, nil
}

// RealtimeInferredProvider infers flow from the live level-1 book.
type RealtimeInferredProvider struct {
	quotes    QuoteSource
	baselines BaselineSource
	infer     *Inferrer
}

func NewRealtimeInferredProvider(quotes QuoteSource, baselines BaselineSource, infer *Inferrer) *RealtimeInferredProvider {
	return &RealtimeInferredProvider{quotes: quotes, baselines: baselines, infer: infer}
}

func (p *RealtimeInferredProvider) Tier() contracts.SourceTier {
	return contracts.TierRealtimeInferred
}

func (p *RealtimeInferredProvider) Fetch(ctx context.Context, symbol string, ts time.Time) (*contracts.CapitalFlowSnapshot, error) {
	quote, err := p.quotes.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	baseline, err := p.baselines.FlowBaseline(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", symbol, err)
	}
	snap, ok := p.infer.Estimate(quote, baseline, contracts.TierRealtimeInferred, ts)
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", symbol, contracts.ErrDataUnavailable)
	}
	return snap, nil
}

// TickInferredProvider runs the same inference over replayed ticks.
type TickInferredProvider struct {
	ticks     TickSource
	baselines BaselineSource
	infer     *Inferrer
}

func NewTickInferredProvider(ticks TickSource, baselines BaselineSource, infer *Inferrer) *TickInferredProvider {
	return &TickInferredProvider{ticks: ticks, baselines: baselines, infer: infer}
}

func (p *TickInferredProvider) Tier() contracts.SourceTier {
	return contracts.TierTickInferred
}

func (p *TickInferredProvider) Fetch(ctx context.Context, symbol string, ts time.Time) (*contracts.CapitalFlowSnapshot, error) {
	tick, err := p.ticks.LatestTick(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("tick %s: %w", symbol, err)
	}
	baseline, err := p.baselines.FlowBaseline(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", symbol, err)
	}
	snap, ok := p.infer.Estimate(tick, baseline, contracts.TierTickInferred, ts)
	if !ok {
		return nil, fmt.Errorf("tick %s: %w", symbol, contracts.ErrDataUnavailable)
	}
	return snap, nil
}

// DelayedAggregateProvider serves the scraped end-of-session aggregate.
// The chain accepts its answer even past the freshness bound; the tier
// tag keeps it out of intraday decisions.
type DelayedAggregateProvider struct {
	src AggregateSource
}

func NewDelayedAggregateProvider(src AggregateSource) *DelayedAggregateProvider {
	return &DelayedAggregateProvider{src: src}
}

func (p *DelayedAggregateProvider) Tier() contracts.SourceTier {
	return contracts.TierDelayedAggregate
}

func (p *DelayedAggregateProvider) Fetch(ctx context.Context, symbol string, _ time.Time) (*contracts.CapitalFlowSnapshot, error) {
	snap, err := p.src.SessionAggregate(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("delayed aggregate %s: %w", symbol, err)
	}
	return snap, nil
}
