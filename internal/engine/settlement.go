package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock-exchange-go/market"
	"stock-exchange-go/order"
)

// Leg 结算步骤
type Leg string

const (
	LegDebitBuyer   Leg = "debit_buyer"
	LegRemoveShares Leg = "remove_shares"
	LegCreditSeller Leg = "credit_seller"
	LegAddShares    Leg = "add_shares"
)

// SettlementError 某一步结算失败；OrderID 为该步骤所属的订单。
type SettlementError struct {
	OrderID string
	Leg     Leg
	Err     error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement %s failed for order %s: %v", e.Leg, e.OrderID, e.Err)
}

func (e *SettlementError) Unwrap() error { return e.Err }

type sagaStep struct {
	leg     Leg
	orderID string
	do      func() error
	undo    func() error
}

// runSaga 顺序执行各步骤；某步失败时逆序补偿已完成的步骤。
// 第二个返回值为补偿过程中的错误（账户可能处于不一致状态）。
func runSaga(steps []sagaStep) (*SettlementError, error) {
	for i, s := range steps {
		err := s.do()
		if err == nil {
			continue
		}
		var compErr error
		for j := i - 1; j >= 0; j-- {
			if steps[j].undo == nil {
				continue
			}
			if uerr := steps[j].undo(); uerr != nil {
				compErr = errors.Join(compErr, fmt.Errorf("undo %s: %w", steps[j].leg, uerr))
			}
		}
		return &SettlementError{OrderID: s.orderID, Leg: s.leg, Err: err}, compErr
	}
	return nil, nil
}

// settle 先扣买方资金，再扣卖方持仓；之后才给卖方入账、给买方加持仓。
// 任一步失败都会回滚前面的步骤，因此不会出现只完成一半的成交。
func settle(buy, sell *order.Order, qty int64, price decimal.Decimal) (*SettlementError, error) {
	buyer := buy.Owner.Account()
	seller := sell.Owner.Account()
	sym := buy.Symbol()
	notional := price.Mul(decimal.NewFromInt(qty))
	if buyer == nil {
		return &SettlementError{OrderID: buy.ID, Leg: LegDebitBuyer, Err: errNoAccount}, nil
	}
	if seller == nil {
		return &SettlementError{OrderID: sell.ID, Leg: LegRemoveShares, Err: errNoAccount}, nil
	}

	steps := []sagaStep{
		{
			leg:     LegDebitBuyer,
			orderID: buy.ID,
			do:      func() error { return buyer.Debit(notional) },
			undo:    func() error { return buyer.Credit(notional) },
		},
		{
			leg:     LegRemoveShares,
			orderID: sell.ID,
			do:      func() error { return seller.RemoveHolding(sym, qty) },
			undo:    func() error { return seller.AddHolding(sym, qty) },
		},
		{
			leg:     LegCreditSeller,
			orderID: sell.ID,
			do:      func() error { return seller.Credit(notional) },
			undo:    func() error { return seller.Debit(notional) },
		},
		{
			leg:     LegAddShares,
			orderID: buy.ID,
			do:      func() error { return buyer.AddHolding(sym, qty) },
		},
	}
	return runSaga(steps)
}

var errNoAccount = errors.New("owner has no account")

// executeLocked 结算一对已交叉的订单并推进双方状态。
func (e *Engine) executeLocked(buy, sell *order.Order, marketPrice decimal.Decimal) {
	price := executionPrice(buy, sell, marketPrice)
	qty := min(buy.Remaining(), sell.Remaining())
	sym := buy.Symbol()

	serr, compErr := settle(buy, sell, qty, price)
	if serr != nil {
		failed := buy
		if serr.OrderID == sell.ID {
			failed = sell
		}
		e.failLocked(failed, serr, compErr)
		return
	}

	for _, o := range []*order.Order{buy, sell} {
		res, err := o.Fill(qty, price)
		if err != nil {
			e.log.LogError(err, map[string]interface{}{"order_id": o.ID, "qty": qty})
			continue
		}
		if res.Has(order.EffectReleaseFromBook) {
			e.removeLocked(o)
			if res.To == order.StatusFilled {
				e.mon.RecordOrderFilled(sym)
			}
		}
	}

	t := market.Trade{
		ID:          uuid.NewString(),
		Symbol:      sym,
		Price:       price,
		Qty:         qty,
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		Ts:          e.now(),
	}
	if err := e.market.OnTrade(t); err != nil {
		e.log.LogError(err, map[string]interface{}{"trade_id": t.ID, "symbol": sym})
	}
	e.recordTradeLocked(t)

	f, _ := price.Float64()
	e.mon.RecordTrade(sym, f, qty)
	e.log.LogTrade("executed", map[string]interface{}{
		"trade_id": t.ID,
		"symbol":   sym,
		"price":    price.String(),
		"qty":      qty,
		"buy":      buy.ID,
		"sell":     sell.ID,
	})
}

func (e *Engine) recordTradeLocked(t market.Trade) {
	trades := append(e.trades[t.Symbol], t)
	if len(trades) > e.cfg.TradeHistory {
		trades = trades[len(trades)-e.cfg.TradeHistory:]
	}
	e.trades[t.Symbol] = trades
}

// failLocked 结算失败：该订单转入 FAILED 离簿，对手方保持不动。
func (e *Engine) failLocked(o *order.Order, serr *SettlementError, compErr error) {
	sym := o.Symbol()
	res, err := o.Fail(serr)
	if err != nil {
		e.log.LogError(err, map[string]interface{}{"order_id": o.ID})
	}
	if res.Has(order.EffectReleaseFromBook) {
		e.removeLocked(o)
	}
	e.mon.RecordOrderFailed(sym, string(serr.Leg))
	e.log.Warn("settlement failed",
		zap.String("order_id", o.ID),
		zap.String("symbol", sym),
		zap.String("leg", string(serr.Leg)),
		zap.Error(serr.Err))

	fields := map[string]interface{}{
		"order_id": o.ID,
		"symbol":   sym,
		"leg":      string(serr.Leg),
		"reason":   serr.Err.Error(),
	}
	e.alert(false, sym, "settlement_failed", fields)

	if compErr != nil {
		e.log.Error("settlement compensation failed", zap.String("order_id", o.ID), zap.Error(compErr))
		e.alert(true, sym, "settlement_compensation_failed", fields)
	}
}
