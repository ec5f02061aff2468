package order

import "testing"

func TestBookSetGetList(t *testing.T) {
	b := NewBook()
	owner := newOwner(t)
	o, err := NewBuilder().ID("1").Buy().Quantity(5).Stock(testStock(t, "ACME")).Owner(owner).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b.Set(o)
	got, ok := b.Get("1")
	if !ok || got.Symbol() != "ACME" {
		t.Fatalf("get failed: %+v %v", got, ok)
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 order, got %d", b.Len())
	}
	if _, ok := b.Get("missing"); ok {
		t.Fatalf("unexpected hit")
	}
}

func TestBookActiveFiltersSymbolAndStatus(t *testing.T) {
	b := NewBook()
	owner := newOwner(t)
	acme, other := testStock(t, "ACME"), testStock(t, "OTHER")

	open, _ := NewBuilder().ID("open").Buy().Quantity(1).Stock(acme).Owner(owner).Build()
	done, _ := NewBuilder().ID("done").Sell().Quantity(1).Stock(acme).Owner(owner).Build()
	foreign, _ := NewBuilder().ID("foreign").Buy().Quantity(1).Stock(other).Owner(owner).Build()
	b.Set(open)
	b.Set(done)
	b.Set(foreign)
	if _, err := done.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	active := b.Active("ACME")
	if len(active) != 1 || active[0].ID != "open" {
		t.Fatalf("expected only open ACME order, got %d", len(active))
	}
	if all := b.Active(""); len(all) != 2 {
		t.Fatalf("expected 2 active orders, got %d", len(all))
	}
	if list := b.List(); len(list) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(list))
	}
}
