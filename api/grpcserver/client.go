package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"bookreplay/infra/codec"
)

// Client calls bookreplay.v1.Analytics.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, name string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+name, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListPairs(ctx context.Context) ([]string, error) {
	out, err := c.call(ctx, "ListPairs", nil)
	if err != nil {
		return nil, err
	}
	var pairs []string
	for _, v := range out.GetFields()["pairs"].GetListValue().GetValues() {
		pairs = append(pairs, v.GetStringValue())
	}
	return pairs, nil
}

func (c *Client) GetBars(ctx context.Context, pair string) ([]codec.Row, error) {
	out, err := c.call(ctx, "GetBars", map[string]any{"pair": pair})
	if err != nil {
		return nil, err
	}
	return rows(out, "bars"), nil
}

// GetEvents fetches events; cycle < 0 means all cycles.
func (c *Client) GetEvents(ctx context.Context, cycle int) ([]codec.Row, error) {
	req := map[string]any{}
	if cycle >= 0 {
		req["cycle"] = float64(cycle)
	}
	out, err := c.call(ctx, "GetEvents", req)
	if err != nil {
		return nil, err
	}
	return rows(out, "events"), nil
}

func rows(s *structpb.Struct, field string) []codec.Row {
	list := s.GetFields()[field].GetListValue().GetValues()
	out := make([]codec.Row, 0, len(list))
	for _, v := range list {
		out = append(out, v.GetStructValue().AsMap())
	}
	return out
}
