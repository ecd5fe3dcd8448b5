package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"bookreplay/domain/market"
)

type RecordType uint8

const (
	RecordDelta RecordType = iota + 1
	RecordTrade
)

func (t RecordType) String() string {
	switch t {
	case RecordDelta:
		return "DELTA"
	case RecordTrade:
		return "TRADE"
	default:
		return "UNKNOWN"
	}
}

// Record is one framed journal entry.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

var ErrPayload = errors.New("journal: malformed payload")

const (
	maxPairLen = 255
	maxPayload = 1 + maxPairLen + 16
)

// payload: [pairLen:1][pair][price:8][amount:8]
func encodeLevel(pair market.Pair, price, amount float64) []byte {
	buf := make([]byte, 1+len(pair)+16)
	buf[0] = byte(len(pair))
	n := copy(buf[1:], pair)
	binary.BigEndian.PutUint64(buf[1+n:], math.Float64bits(price))
	binary.BigEndian.PutUint64(buf[9+n:], math.Float64bits(amount))
	return buf
}

func decodeLevel(b []byte) (market.Pair, float64, float64, error) {
	if len(b) < 1 {
		return "", 0, 0, ErrPayload
	}
	n := int(b[0])
	if len(b) != 1+n+16 {
		return "", 0, 0, fmt.Errorf("%w: length %d for pair length %d", ErrPayload, len(b), n)
	}
	pair := market.Pair(b[1 : 1+n])
	price := math.Float64frombits(binary.BigEndian.Uint64(b[1+n:]))
	amount := math.Float64frombits(binary.BigEndian.Uint64(b[9+n:]))
	return pair, price, amount, nil
}

func checkPair(p market.Pair) error {
	if len(p) == 0 || len(p) > maxPairLen {
		return fmt.Errorf("%w: pair name of %d bytes", ErrPayload, len(p))
	}
	return nil
}

func DeltaRecord(d market.Delta) (*Record, error) {
	if err := checkPair(d.Pair); err != nil {
		return nil, err
	}
	return &Record{Type: RecordDelta, Time: d.Time, Data: encodeLevel(d.Pair, d.Price, d.Amount)}, nil
}

func TradeRecord(t market.Trade) (*Record, error) {
	if err := checkPair(t.Pair); err != nil {
		return nil, err
	}
	return &Record{Type: RecordTrade, Time: t.Time, Data: encodeLevel(t.Pair, t.Price, t.Amount)}, nil
}

func (r *Record) Delta() (market.Delta, error) {
	if r.Type != RecordDelta {
		return market.Delta{}, fmt.Errorf("%w: %s record is not a delta", ErrPayload, r.Type)
	}
	pair, price, amount, err := decodeLevel(r.Data)
	if err != nil {
		return market.Delta{}, err
	}
	return market.Delta{Pair: pair, Price: price, Amount: amount, Time: r.Time}, nil
}

func (r *Record) Trade() (market.Trade, error) {
	if r.Type != RecordTrade {
		return market.Trade{}, fmt.Errorf("%w: %s record is not a trade", ErrPayload, r.Type)
	}
	pair, price, amount, err := decodeLevel(r.Data)
	if err != nil {
		return market.Trade{}, err
	}
	return market.Trade{Pair: pair, Price: price, Amount: amount, Time: r.Time}, nil
}
