package generator

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"datainsight/internal/core"
)

var fixedNow = time.Date(2025, 10, 18, 15, 4, 5, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestClientsRejectsInvalidCount(t *testing.T) {
	g := NewSeeded(1)
	for _, n := range []int{0, -5} {
		seq, err := g.Clients(n)
		if !errors.Is(err, core.ErrInvalidArgument) {
			t.Fatalf("Clients(%d) expected ErrInvalidArgument, got %v", n, err)
		}
		if seq != nil {
			t.Fatalf("Clients(%d) returned a sequence on error", n)
		}
	}
}

func TestClientAttributes(t *testing.T) {
	g := NewSeeded(7, WithClock(clock))
	seq, err := g.Clients(10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts := map[core.ClientStatus]int{}
	total := 0
	for c := range seq {
		total++
		if c.Age < MinAge || c.Age > MaxAge {
			t.Fatalf("age %d out of range", c.Age)
		}
		if !c.Status.IsValid() {
			t.Fatalf("invalid status %q", c.Status)
		}
		if c.Email != core.EmailFor(c.FirstName, c.LastName) {
			t.Fatalf("email %q not derived from name", c.Email)
		}
		if !c.RegisteredAt.Equal(fixedNow) {
			t.Fatalf("registration time %v", c.RegisteredAt)
		}
		counts[c.Status]++
	}
	if total != 10000 {
		t.Fatalf("generated %d clients, want 10000", total)
	}

	const tolerance = 0.02
	want := map[core.ClientStatus]float64{
		core.StatusActive:   0.8,
		core.StatusInactive: 0.1,
		core.StatusPremium:  0.1,
	}
	for status, share := range want {
		got := float64(counts[status]) / float64(total)
		if math.Abs(got-share) > tolerance {
			t.Errorf("status %s share %.3f, want %.2f±%.2f", status, got, share, tolerance)
		}
	}
}

func TestStatusThresholds(t *testing.T) {
	cases := []struct {
		draw float64
		want core.ClientStatus
	}{
		{0.0, core.StatusActive},
		{0.8, core.StatusActive},
		{0.80001, core.StatusInactive},
		{0.9, core.StatusInactive},
		{0.90001, core.StatusPremium},
		{0.99999, core.StatusPremium},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.draw); got != tc.want {
			t.Errorf("StatusFor(%v) = %s, want %s", tc.draw, got, tc.want)
		}
	}
}

func TestTransactionsValidation(t *testing.T) {
	g := NewSeeded(1)
	owners := []core.Client{{ID: 1}}
	if _, err := g.Transactions(owners, 0); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := g.Transactions(nil, 3); !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestTransactionAttributes(t *testing.T) {
	g := NewSeeded(42, WithClock(clock))
	owners := []core.Client{{ID: 1}, {ID: 2}, {ID: 3}}
	seq, err := g.Transactions(owners, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	today := core.CivilDate(fixedNow)
	oldest := today.AddDate(0, 0, -HistoryDays)
	refs := map[string]bool{}
	perOwner := map[int64]int{}
	for tx := range seq {
		if tx.Amount <= 0 {
			t.Fatalf("non-positive amount %v", tx.Amount)
		}
		if r := AmountRange(tx.Category); !r.Contains(tx.Amount) {
			t.Fatalf("amount %v outside %v for %s", tx.Amount, r, tx.Category)
		}
		if tx.Date.Before(oldest) || tx.Date.After(today) {
			t.Fatalf("date %v outside [%v, %v]", tx.Date, oldest, today)
		}
		if !strings.HasPrefix(tx.Description, "Transaction "+tx.Category) {
			t.Fatalf("unexpected description %q", tx.Description)
		}
		if refs[tx.Reference] {
			t.Fatalf("duplicate reference %q", tx.Reference)
		}
		refs[tx.Reference] = true
		perOwner[tx.ClientID]++
	}
	for _, o := range owners {
		if perOwner[o.ID] != 2000 {
			t.Fatalf("owner %d got %d transactions", o.ID, perOwner[o.ID])
		}
	}
}

func TestAmountRange(t *testing.T) {
	cases := map[string]Range{
		core.CategoryComputing:  {200, 2000},
		core.CategoryRealEstate: {50000, 500000},
		core.CategoryAutomotive: {5000, 50000},
		core.CategoryFood:       {10, 200},
		core.CategoryBeauty:     {20, 500},
		core.CategoryEducation:  {50, 1000},
		"sports":                {50, 500},
		"unheard-of":            {50, 500},
	}
	for cat, want := range cases {
		if got := AmountRange(cat); got != want {
			t.Errorf("AmountRange(%q) = %v, want %v", cat, got, want)
		}
	}
}

func TestSeedReproducesStream(t *testing.T) {
	a := NewSeeded(99, WithClock(clock))
	b := NewSeeded(99, WithClock(clock))
	for i := 0; i < 50; i++ {
		ca, cb := a.Client(), b.Client()
		if ca != cb {
			t.Fatalf("client %d differs: %+v vs %+v", i, ca, cb)
		}
		ta, tb := a.Transaction(ca), b.Transaction(cb)
		if ta != tb {
			t.Fatalf("transaction %d differs: %+v vs %+v", i, ta, tb)
		}
	}
}

func TestSequenceStopsEarly(t *testing.T) {
	g := NewSeeded(3)
	seq, _ := g.Clients(100)
	n := 0
	for range seq {
		n++
		if n == 5 {
			break
		}
	}
	if n != 5 {
		t.Fatalf("expected early stop at 5, got %d", n)
	}
}
