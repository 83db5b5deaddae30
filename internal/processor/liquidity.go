package processor

import (
	"context"
	"fmt"

	"dex-pricing-lab/internal/domain"
	"dex-pricing-lab/internal/ledger"
)

// HandleMint records added liquidity against the provider's ledger.
func (p *Processor) HandleMint(ctx context.Context, ev *domain.LiquidityEvent) error {
	if ev.Type != domain.EventTypeMint {
		return fmt.Errorf("handle mint: unexpected event type %s", ev.Type)
	}
	return p.handleLiquidity(ctx, ev)
}

// HandleBurn records removed liquidity against the provider's ledger.
func (p *Processor) HandleBurn(ctx context.Context, ev *domain.LiquidityEvent) error {
	if ev.Type != domain.EventTypeBurn {
		return fmt.Errorf("handle burn: unexpected event type %s", ev.Type)
	}
	return p.handleLiquidity(ctx, ev)
}

func (p *Processor) handleLiquidity(ctx context.Context, ev *domain.LiquidityEvent) error {
	var point *domain.TrackedMetricPoint
	err := p.atomically(ctx, func(ctx context.Context, w *Processor) error {
		var err error
		point, err = w.applyLiquidity(ctx, ev)
		return err
	})
	if err != nil {
		return err
	}
	p.emitPoint(ctx, point)
	return nil
}

func (p *Processor) applyLiquidity(ctx context.Context, ev *domain.LiquidityEvent) (*domain.TrackedMetricPoint, error) {
	id := domain.TransactionID(ev.TxHash, ev.LogIndex)
	if done, err := p.applied(ctx, id, ev.Type, ev.Pool); err != nil || done {
		return nil, err
	}

	pc, err := p.loadPair(ctx, ev.Pool)
	if err != nil || pc == nil {
		return nil, err
	}
	pool := pc.pool

	amountUSD := p.attributor.TrackedLiquidityUSD(ev.Amount0, pc.token0, ev.Amount1, pc.token1, pc.bundle)
	untracked := p.attributor.UntrackedUSD(ev.Amount0, pc.token0, ev.Amount1, pc.token1, pc.bundle)

	if ev.IsAdd() {
		pool.TotalSupply = pool.TotalSupply.Add(ev.Liquidity)
	} else {
		pool.TotalSupply = pool.TotalSupply.Sub(ev.Liquidity)
	}
	pool.TxCount++
	pc.token0.TxCount++
	pc.token1.TxCount++

	if err := p.pools.Save(ctx, pool); err != nil {
		return nil, fmt.Errorf("save pool %s: %w", pool.ID, err)
	}
	if err := p.saveTokens(ctx, pc); err != nil {
		return nil, err
	}

	if _, err := p.tracker.Record(ctx, ledger.LiquidityChange{
		Liquidity: ev.Liquidity,
		Timestamp: ev.Timestamp,
		Account:   ev.Account,
		Pool:      pool.ID,
		IsAdd:     ev.IsAdd(),
		TxHash:    ev.TxHash,
		LogIndex:  ev.LogIndex,
	}); err != nil {
		return nil, err
	}

	err = p.insertTransaction(ctx, &domain.PoolTransaction{
		ID:        id,
		Kind:      ev.Type,
		Pool:      pool.ID,
		TxHash:    ev.TxHash,
		LogIndex:  ev.LogIndex,
		Block:     ev.Block,
		Timestamp: ev.Timestamp,
		Sender:    ev.Account,
		Amount0:   ev.Amount0,
		Amount1:   ev.Amount1,
		AmountUSD: amountUSD,
		Liquidity: ev.Liquidity,
	})
	if err != nil {
		return nil, err
	}

	return &domain.TrackedMetricPoint{
		Pool:         pool.ID,
		Timestamp:    ev.Timestamp,
		Block:        ev.Block,
		TxHash:       ev.TxHash,
		LogIndex:     ev.LogIndex,
		Kind:         ev.Type,
		TrackedUSD:   amountUSD,
		UntrackedUSD: untracked,
		EthPrice:     pc.bundle.EthPrice,
	}, nil
}
