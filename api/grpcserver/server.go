package grpcserver

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"bookreplay/domain/market"
	"bookreplay/domain/window"
	"bookreplay/infra/codec"
	"bookreplay/infra/store"
)

// Reader is the read side of the result store.
type Reader interface {
	Pairs() ([]market.Pair, error)
	Bars(pair market.Pair) ([]window.Bar, error)
	Events() ([]store.EventRecord, error)
}

// Server answers queries over the results of the last replay.
type Server struct {
	results Reader
	pairs   []market.Pair
}

// NewServer serves results from r. pairs orders the per-pair weight
// columns of events.
func NewServer(r Reader, pairs []market.Pair) *Server {
	return &Server{results: r, pairs: pairs}
}

// Register attaches the Analytics service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// -------------------- Queries --------------------

func (s *Server) ListPairs(
	ctx context.Context,
	req *structpb.Struct,
) (*structpb.Struct, error) {
	pairs, err := s.results.Pairs()
	if err != nil {
		return nil, toStatus(err)
	}

	names := make([]any, len(pairs))
	for i, p := range pairs {
		names[i] = string(p)
	}
	return structpb.NewStruct(map[string]any{"pairs": names})
}

func (s *Server) GetBars(
	ctx context.Context,
	req *structpb.Struct,
) (*structpb.Struct, error) {
	pair := market.Pair(req.GetFields()["pair"].GetStringValue())
	if pair == "" {
		return nil, status.Error(codes.InvalidArgument, "pair is required")
	}

	bars, err := s.results.Bars(pair)
	if err != nil {
		return nil, toStatus(err)
	}

	rows := make([]any, len(bars))
	for i, b := range bars {
		rows[i] = map[string]any(codec.BarRow(pair, b))
	}

	log.Debug().Str("pair", string(pair)).Int("bars", len(bars)).Msg("[gRPC] GetBars")
	return structpb.NewStruct(map[string]any{"bars": rows})
}

// GetEvents returns every stored event, or only those of one cycle when
// the request carries a "cycle" number.
func (s *Server) GetEvents(
	ctx context.Context,
	req *structpb.Struct,
) (*structpb.Struct, error) {
	cycle, filter := req.GetFields()["cycle"]

	recs, err := s.results.Events()
	if err != nil {
		return nil, toStatus(err)
	}

	rows := make([]any, 0, len(recs))
	for _, rec := range recs {
		if filter && float64(rec.CycleID) != cycle.GetNumberValue() {
			continue
		}
		row := codec.EventRow(rec.Event, s.pairs)
		row["state"] = rec.State.String()
		rows = append(rows, map[string]any(row))
	}
	return structpb.NewStruct(map[string]any{"events": rows})
}

// -------------------- Converters --------------------

func toStatus(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
