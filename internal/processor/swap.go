package processor

import (
	"context"
	"fmt"

	"dex-pricing-lab/internal/domain"
)

// HandleSwap accumulates tracked and untracked volume on the pool and its
// tokens and records the swap.
func (p *Processor) HandleSwap(ctx context.Context, ev *domain.SwapEvent) error {
	var point *domain.TrackedMetricPoint
	err := p.atomically(ctx, func(ctx context.Context, w *Processor) error {
		var err error
		point, err = w.applySwap(ctx, ev)
		return err
	})
	if err != nil {
		return err
	}
	p.emitPoint(ctx, point)
	return nil
}

func (p *Processor) applySwap(ctx context.Context, ev *domain.SwapEvent) (*domain.TrackedMetricPoint, error) {
	id := domain.TransactionID(ev.TxHash, ev.LogIndex)
	if done, err := p.applied(ctx, id, domain.EventTypeSwap, ev.Pool); err != nil || done {
		return nil, err
	}

	pc, err := p.loadPair(ctx, ev.Pool)
	if err != nil || pc == nil {
		return nil, err
	}
	pool := pc.pool

	amount0 := ev.Amount0()
	amount1 := ev.Amount1()
	tracked := p.attributor.TrackedVolumeUSD(amount0, pc.token0, amount1, pc.token1, pc.bundle)
	untracked := p.attributor.UntrackedUSD(amount0, pc.token0, amount1, pc.token1, pc.bundle)

	pool.VolumeToken0 = pool.VolumeToken0.Add(amount0)
	pool.VolumeToken1 = pool.VolumeToken1.Add(amount1)
	pool.VolumeUSD = pool.VolumeUSD.Add(tracked)
	pool.UntrackedVolumeUSD = pool.UntrackedVolumeUSD.Add(untracked)
	pool.TxCount++

	pc.token0.TradeVolume = pc.token0.TradeVolume.Add(amount0)
	pc.token0.TradeVolumeUSD = pc.token0.TradeVolumeUSD.Add(tracked)
	pc.token0.TxCount++
	pc.token1.TradeVolume = pc.token1.TradeVolume.Add(amount1)
	pc.token1.TradeVolumeUSD = pc.token1.TradeVolumeUSD.Add(tracked)
	pc.token1.TxCount++

	if err := p.pools.Save(ctx, pool); err != nil {
		return nil, fmt.Errorf("save pool %s: %w", pool.ID, err)
	}
	if err := p.saveTokens(ctx, pc); err != nil {
		return nil, err
	}

	err = p.insertTransaction(ctx, &domain.PoolTransaction{
		ID:        id,
		Kind:      domain.EventTypeSwap,
		Pool:      pool.ID,
		TxHash:    ev.TxHash,
		LogIndex:  ev.LogIndex,
		Block:     ev.Block,
		Timestamp: ev.Timestamp,
		Sender:    ev.Sender,
		Amount0:   amount0,
		Amount1:   amount1,
		AmountUSD: tracked,
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
		Kind:         domain.EventTypeSwap,
		TrackedUSD:   tracked,
		UntrackedUSD: untracked,
		EthPrice:     pc.bundle.EthPrice,
	}, nil
}
