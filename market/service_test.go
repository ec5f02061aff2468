package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceListAndTrade(t *testing.T) {
	pub := NewPublisher()
	trCh := pub.SubscribeTrade(1)
	svc := NewService(pub, time.Minute)

	st, err := svc.List("ACME", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = svc.List("ACME", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, svc.OnTrade(Trade{Symbol: "ACME", Price: decimal.NewFromInt(95), Qty: 10, Ts: time.Now()}))
	assert.True(t, st.Price().Equal(decimal.NewFromInt(95)))
	assert.Less(t, svc.Staleness("ACME"), time.Minute)

	select {
	case tr := <-trCh:
		assert.Equal(t, int64(10), tr.Qty)
	default:
		t.Fatalf("expected trade published")
	}

	k, ok := svc.Kline("ACME")
	require.True(t, ok)
	assert.Equal(t, int64(10), k.Volume)
}

func TestServiceRejectsBadTrades(t *testing.T) {
	svc := NewService(nil, 0)
	_, err := svc.List("ACME", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	err = svc.OnTrade(Trade{Symbol: "NOPE", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	err = svc.OnTrade(Trade{Symbol: "NOPE", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}
