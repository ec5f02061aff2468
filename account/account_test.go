package account

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDebitCredit(t *testing.T) {
	acc, err := New("alice", d(1000))
	require.NoError(t, err)

	require.NoError(t, acc.Debit(d(400)))
	assert.True(t, acc.Balance().Equal(d(600)))

	err = acc.Debit(d(601))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, acc.Balance().Equal(d(600)), "failed debit must not mutate")

	require.NoError(t, acc.Credit(d(50)))
	assert.True(t, acc.Balance().Equal(d(650)))

	assert.ErrorIs(t, acc.Debit(d(0)), ErrInvalidAmount)
	assert.ErrorIs(t, acc.Credit(d(-1)), ErrInvalidAmount)
}

func TestNewRejectsNegativeBalance(t *testing.T) {
	_, err := New("bob", d(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestHoldings(t *testing.T) {
	acc, _ := New("alice", decimal.Zero)
	require.NoError(t, acc.AddHolding("ACME", 10))
	require.NoError(t, acc.RemoveHolding("ACME", 4))
	assert.Equal(t, int64(6), acc.Holding("ACME"))

	err := acc.RemoveHolding("ACME", 7)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(6), acc.Holding("ACME"))

	require.NoError(t, acc.RemoveHolding("ACME", 6))
	_, present := acc.Holdings()["ACME"]
	assert.False(t, present, "zero holding should be removed")
}

func TestEquity(t *testing.T) {
	acc, _ := New("alice", d(100))
	_ = acc.AddHolding("ACME", 3)
	_ = acc.AddHolding("XYZ", 2)
	eq := acc.Equity(map[string]decimal.Decimal{"ACME": d(10)})
	assert.True(t, eq.Equal(d(130)), "got %s", eq)
}

func TestConcurrentLedger(t *testing.T) {
	acc, _ := New("alice", d(10000))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = acc.Debit(d(1))
				_ = acc.AddHolding("ACME", 1)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = acc.Credit(d(1))
				_ = acc.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.True(t, acc.Balance().Equal(d(10000)))
	assert.Equal(t, int64(5000), acc.Holding("ACME"))
}
