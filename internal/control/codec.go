package control

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype of the control API
// ("application/grpc+json").
const codecName = "json"

// jsonCodec carries control messages as JSON. The control API has no
// generated protobuf types; its messages are plain Go structs shared with
// the HTTP gateway.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
