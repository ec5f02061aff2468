package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTradeNotional(t *testing.T) {
	tr := Trade{Price: decimal.RequireFromString("9.5"), Qty: 10}
	if !tr.Notional().Equal(decimal.NewFromInt(95)) {
		t.Fatalf("unexpected notional %s", tr.Notional())
	}
}
