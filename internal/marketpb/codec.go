// Package marketpb holds the wire types and service descriptor of the
// filetrade.market.Market gRPC service. Messages travel as JSON: the
// package registers a "json" codec that both ends select with
// grpc.CallContentSubtype(Name).
package marketpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Name is the codec name and gRPC content subtype.
const Name = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec encodes protobuf well-known types with protojson and everything
// else with encoding/json.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return protojson.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return Name
}
