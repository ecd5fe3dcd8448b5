package arbitrage

import (
	"errors"
	"fmt"

	"bookreplay/domain/market"
)

var (
	ErrInvalidGraph = errors.New("arbitrage: invalid currency graph")
	ErrUnknownLeg   = errors.New("arbitrage: no pair for conversion")
)

// Cycle is a closed path of currency conversions, e.g. USD -> BTC -> BCH -> USD.
type Cycle struct {
	ID   int      `yaml:"id"`
	Path []string `yaml:"path"`
}

// Graph is the set of books held by a detector and the cycles evaluated
// over them.
type Graph struct {
	Pairs  []market.Pair `yaml:"pairs"`
	Cycles []Cycle       `yaml:"cycles"`
}

// DefaultGraph is the BTC/BCH over USD/EUR deployment: three triangular
// and one rectangular loop in each direction.
func DefaultGraph() Graph {
	return Graph{
		Pairs: []market.Pair{"BTC-USD", "BTC-EUR", "BCH-USD", "BCH-EUR", "BCH-BTC"},
		Cycles: []Cycle{
			{ID: 1, Path: []string{"USD", "BTC", "BCH", "USD"}},
			{ID: 2, Path: []string{"USD", "BCH", "BTC", "USD"}},
			{ID: 3, Path: []string{"EUR", "BTC", "BCH", "EUR"}},
			{ID: 4, Path: []string{"EUR", "BCH", "BTC", "EUR"}},
			{ID: 5, Path: []string{"USD", "BTC", "EUR", "BCH", "USD"}},
			{ID: 6, Path: []string{"USD", "BCH", "EUR", "BTC", "USD"}},
		},
	}
}

// leg converts through one pair: buying the base pays the best ask,
// selling it receives the best bid.
type leg struct {
	pair int
	buy  bool
}

type compiledCycle struct {
	id      int
	legs    []leg
	weights []int8
}

func (g Graph) Validate() error {
	_, err := g.compile()
	return err
}

func (g Graph) compile() ([]compiledCycle, error) {
	if len(g.Pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs", ErrInvalidGraph)
	}
	seenPair := make(map[market.Pair]bool, len(g.Pairs))
	for _, p := range g.Pairs {
		if p.Base() == "" || p.Quote() == "" {
			return nil, fmt.Errorf("%w: pair %q is not BASE-QUOTE", ErrInvalidGraph, p)
		}
		if seenPair[p] {
			return nil, fmt.Errorf("%w: duplicate pair %s", ErrInvalidGraph, p)
		}
		seenPair[p] = true
	}

	out := make([]compiledCycle, 0, len(g.Cycles))
	seenID := map[int]bool{}
	for _, c := range g.Cycles {
		if c.ID <= 0 || seenID[c.ID] {
			return nil, fmt.Errorf("%w: cycle id %d", ErrInvalidGraph, c.ID)
		}
		seenID[c.ID] = true
		if len(c.Path) < 3 || c.Path[0] != c.Path[len(c.Path)-1] {
			return nil, fmt.Errorf("%w: cycle %d path %v is not closed", ErrInvalidGraph, c.ID, c.Path)
		}

		cc := compiledCycle{id: c.ID, weights: make([]int8, len(g.Pairs))}
		for i := 0; i+1 < len(c.Path); i++ {
			l, err := g.resolve(c.Path[i], c.Path[i+1])
			if err != nil {
				return nil, fmt.Errorf("cycle %d: %w", c.ID, err)
			}
			if cc.weights[l.pair] != 0 {
				return nil, fmt.Errorf("%w: cycle %d uses %s twice", ErrInvalidGraph, c.ID, g.Pairs[l.pair])
			}
			cc.legs = append(cc.legs, l)
			if l.buy {
				cc.weights[l.pair] = 1
			} else {
				cc.weights[l.pair] = -1
			}
		}
		out = append(out, cc)
	}
	return out, nil
}

func (g Graph) resolve(from, to string) (leg, error) {
	for i, p := range g.Pairs {
		switch {
		case p.Base() == to && p.Quote() == from:
			return leg{pair: i, buy: true}, nil
		case p.Base() == from && p.Quote() == to:
			return leg{pair: i, buy: false}, nil
		}
	}
	return leg{}, fmt.Errorf("%w: %s -> %s", ErrUnknownLeg, from, to)
}
