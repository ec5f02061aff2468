package logschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	err := Validate("trade_event", map[string]interface{}{
		"event": "executed", "trade_id": "t1", "symbol": "ACME",
		"price": "95", "qty": 10, "buy": "b", "sell": "s",
	})
	assert.NoError(t, err)

	err = Validate("reject_event", map[string]interface{}{"event": "order_rejected", "symbol": "ACME"})
	assert.EqualError(t, err, "reject_event missing fields: order_id,reason")

	assert.NoError(t, Validate("unknown", nil))
}

func TestKnown(t *testing.T) {
	assert.Equal(t, []string{"order_event", "order_update", "reject_event", "trade_event"}, Known())
}
