package orderbook

import "fmt"

// PriceLevel is the aggregate resting size at a single price.
type PriceLevel struct {
	Price float64
	Size  float64
}

func (p *PriceLevel) String() string {
	return fmt.Sprintf("%g@%g", p.Size, p.Price)
}
