package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Serializer interface {
	Encode(Row) ([]byte, error)
	Decode([]byte) (Row, error)
	ContentType() string
}

var ErrUnknownEncoding = errors.New("codec: unknown encoding")

// New picks a serializer by name: "json" or "proto".
func New(name string) (Serializer, error) {
	switch name {
	case "", "json":
		return JSONSerializer{}, nil
	case "proto", "protobuf":
		return ProtoSerializer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// ---------- JSON ----------

type JSONSerializer struct{}

func (JSONSerializer) Encode(r Row) ([]byte, error) {
	return json.Marshal(r)
}

func (JSONSerializer) Decode(b []byte) (Row, error) {
	var r Row
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (JSONSerializer) ContentType() string { return "application/json" }

// ---------- Protobuf ----------

// ProtoSerializer writes rows as google.protobuf.Struct messages.
type ProtoSerializer struct{}

func (ProtoSerializer) Encode(r Row) ([]byte, error) {
	msg, err := Struct(r)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

func (ProtoSerializer) Decode(b []byte) (Row, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(b, &msg); err != nil {
		return nil, err
	}
	return msg.AsMap(), nil
}

func (ProtoSerializer) ContentType() string { return "application/x-protobuf" }

// Struct converts a row into its protobuf form.
func Struct(r Row) (*structpb.Struct, error) {
	return structpb.NewStruct(r)
}
