package sim

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-exchange-go/account"
	"stock-exchange-go/market"
	"stock-exchange-go/order"
	"stock-exchange-go/trader"
)

type stubSubmitter struct {
	mu     sync.Mutex
	reject bool
	orders []*order.Order
}

func (s *stubSubmitter) Submit(o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject {
		return errors.New("rejected")
	}
	s.orders = append(s.orders, o)
	return nil
}

func (s *stubSubmitter) Cancel(string) error { return nil }

func stubRunner(t *testing.T, sub Submitter) *Runner {
	t.Helper()
	stock, err := market.NewStock("SIM", decimal.NewFromInt(100))
	require.NoError(t, err)
	acct, err := account.New("a", decimal.Zero)
	require.NoError(t, err)
	return &Runner{
		Stock:           stock,
		OrderMgr:        sub,
		Traders:         []*trader.Trader{trader.New("a", "a", acct, nil)},
		Workers:         2,
		OrdersPerWorker: 25,
		Band:            decimal.RequireFromString("0.05"),
		Tick:            decimal.RequireFromString("0.01"),
	}
}

func TestRunnerSubmitsOrders(t *testing.T) {
	sub := &stubSubmitter{}
	rep, err := stubRunner(t, sub).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(50), rep.Submitted)
	assert.Equal(t, int64(50), rep.Accepted)
	require.Len(t, sub.orders, 50)
	lo, hi := decimal.NewFromInt(95), decimal.NewFromInt(105)
	for _, o := range sub.orders {
		if p, ok := o.Price(); ok {
			assert.True(t, p.GreaterThanOrEqual(lo) && p.LessThanOrEqual(hi), "price %s out of band", p)
			assert.True(t, p.Mod(decimal.RequireFromString("0.01")).IsZero())
		}
	}
}

func TestRunnerCountsRejects(t *testing.T) {
	rep, err := stubRunner(t, &stubSubmitter{reject: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), rep.Rejected)
	assert.Zero(t, rep.Accepted)
}

func TestRunnerNotInitialized(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background())
	assert.Error(t, err)
}

func TestRunnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := stubRunner(t, &stubSubmitter{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rep.Submitted)
}
