package codec

import (
	"errors"
	"fmt"

	"bookreplay/domain/market"
)

var ErrBadRow = errors.New("codec: bad input row")

// Input row kinds accepted by ParseInput.
const (
	KindDelta = "delta"
	KindTrade = "trade"
)

// ParseInput reads an input row of the form
// {"type":"delta"|"trade","pair":...,"price":...,"amount":...,"time":...}.
// Exactly one of the returned pointers is set.
func ParseInput(r Row) (*market.Delta, *market.Trade, error) {
	kind, _ := r["type"].(string)
	pair, _ := r["pair"].(string)
	if pair == "" {
		return nil, nil, fmt.Errorf("%w: missing pair", ErrBadRow)
	}
	price, err := field(r, "price")
	if err != nil {
		return nil, nil, err
	}
	amount, err := field(r, "amount")
	if err != nil {
		return nil, nil, err
	}
	t, err := field(r, "time")
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case KindDelta:
		return &market.Delta{Pair: market.Pair(pair), Price: price, Amount: amount, Time: int64(t)}, nil, nil
	case KindTrade:
		return nil, &market.Trade{Pair: market.Pair(pair), Price: price, Amount: amount, Time: int64(t)}, nil
	default:
		return nil, nil, fmt.Errorf("%w: type %q", ErrBadRow, kind)
	}
}

func field(r Row, name string) (float64, error) {
	v, ok := r[name].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadRow, name)
	}
	return v, nil
}
