// Package generator produces synthetic clients and transactions whose attributes
// follow category-conditioned distributions. It never touches a record store.
package generator

import (
	"fmt"
	"iter"
	"math"
	"math/rand/v2"
	"time"

	"datainsight/internal/core"
)

const (
	MinAge = 18
	MaxAge = 82

	// HistoryDays is the window transaction dates are drawn from, today included.
	HistoryDays = 365

	premiumThreshold  = 0.9
	inactiveThreshold = 0.8
)

// Range is a closed amount interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var (
	categoryRanges = map[string]Range{
		core.CategoryComputing:   {200, 2000},
		core.CategoryElectronics: {200, 2000},
		core.CategoryRealEstate:  {50000, 500000},
		core.CategoryAutomotive:  {5000, 50000},
		core.CategoryTravel:      {300, 3000},
		core.CategoryFood:        {10, 200},
		core.CategoryClothing:    {20, 500},
		core.CategoryBeauty:      {20, 500},
		core.CategoryHealth:      {50, 1000},
		core.CategoryEducation:   {50, 1000},
	}
	defaultRange = Range{50, 500}
)

// AmountRange returns the amount interval used for a category.
func AmountRange(category string) Range {
	if r, ok := categoryRanges[category]; ok {
		return r
	}
	return defaultRange
}

// Generator draws every random value from its own source.
// It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
	seq uint64
}

type Option func(*Generator)

// WithClock replaces time.Now, used for registration times, dates and references.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{rng: rng, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSeeded returns a generator whose random stream is fully determined by seed.
func NewSeeded(seed uint64, opts ...Option) *Generator {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts...)
}

// Client draws one client.
func (g *Generator) Client() core.Client {
	first := pick(g.rng, core.FirstNames)
	last := pick(g.rng, core.LastNames)
	country := pick(g.rng, core.Countries)
	age := MinAge + g.rng.IntN(MaxAge-MinAge+1)
	profession := pick(g.rng, core.Professions)

	c := core.NewClient(last, first, country, age, profession, g.now())
	c.Status = StatusFor(g.rng.Float64())
	return c
}

// StatusFor maps a uniform [0,1) draw to a status: about 10% premium, 10% inactive.
func StatusFor(draw float64) core.ClientStatus {
	switch {
	case draw > premiumThreshold:
		return core.StatusPremium
	case draw > inactiveThreshold:
		return core.StatusInactive
	default:
		return core.StatusActive
	}
}

// Clients validates n and returns a lazy sequence of n clients.
func (g *Generator) Clients(n int) (iter.Seq[core.Client], error) {
	if n <= 0 {
		return nil, fmt.Errorf("client count %d: %w", n, core.ErrInvalidArgument)
	}
	return func(yield func(core.Client) bool) {
		for i := 0; i < n; i++ {
			if !yield(g.Client()) {
				return
			}
		}
	}, nil
}

// Transaction draws one transaction owned by owner.
func (g *Generator) Transaction(owner core.Client) core.Transaction {
	now := g.now()
	date := core.CivilDate(now).AddDate(0, 0, -g.rng.IntN(HistoryDays))
	category := pick(g.rng, core.Categories)

	return core.Transaction{
		Date:        date,
		Amount:      g.amount(category),
		Category:    category,
		Description: fmt.Sprintf("Transaction %s - %s", category, date.Format(core.DateLayout)),
		PaymentMode: pick(g.rng, core.PaymentModes),
		Reference:   g.reference(now),
		CreatedAt:   now,
		ClientID:    owner.ID,
	}
}

// Transactions validates its inputs and returns perClient transactions for every owner.
func (g *Generator) Transactions(owners []core.Client, perClient int) (iter.Seq[core.Transaction], error) {
	if perClient <= 0 {
		return nil, fmt.Errorf("transactions per client %d: %w", perClient, core.ErrInvalidArgument)
	}
	if len(owners) == 0 {
		return nil, fmt.Errorf("transaction owners: %w", core.ErrNoData)
	}
	return func(yield func(core.Transaction) bool) {
		for _, owner := range owners {
			for i := 0; i < perClient; i++ {
				if !yield(g.Transaction(owner)) {
					return
				}
			}
		}
	}, nil
}

// amount draws uniformly in the category range, rounded to cents and kept inside it.
func (g *Generator) amount(category string) float64 {
	r := AmountRange(category)
	v := r.Min + g.rng.Float64()*(r.Max-r.Min)
	v = math.Round(v*100) / 100
	return math.Min(math.Max(v, r.Min), r.Max)
}

// reference combines a timestamp, a per-generator sequence and a random suffix.
// The sequence alone keeps references unique within one generator.
func (g *Generator) reference(now time.Time) string {
	g.seq++
	return fmt.Sprintf("TXN-%d-%06d-%04x", now.UnixMilli(), g.seq, g.rng.IntN(1<<16))
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.IntN(len(values))]
}
