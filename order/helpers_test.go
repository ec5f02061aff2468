package order

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stock-exchange-go/account"
	"stock-exchange-go/market"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingOwner struct {
	acct *account.Account

	mu      sync.Mutex
	updates []Snapshot
	added   []string
	removed []string
}

func newOwner(t *testing.T) *recordingOwner {
	t.Helper()
	acct, err := account.New("owner", d("1000"))
	require.NoError(t, err)
	return &recordingOwner{acct: acct}
}

func (r *recordingOwner) Account() *account.Account { return r.acct }

func (r *recordingOwner) OnOrderUpdate(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, s)
}

func (r *recordingOwner) AddOrder(o *Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, o.ID)
}

func (r *recordingOwner) RemoveActive(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

func (r *recordingOwner) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Status, 0, len(r.updates))
	for _, u := range r.updates {
		res = append(res, u.Status)
	}
	return res
}

func testStock(t *testing.T, symbol string) *market.Stock {
	t.Helper()
	s, err := market.NewStock(symbol, d("100"))
	require.NoError(t, err)
	return s
}
