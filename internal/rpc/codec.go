package rpc

import "encoding/json"

// jsonCodec is the wire codec for the catalog gRPC service: the messages
// in types.go are plain Go structs rather than protoc-gen-go types (this
// environment carries no protoc toolchain), so they are framed over gRPC
// with JSON rather than binary protobuf, the same substitution
// SimonWaldherr-tinySQL's cmd/server makes for its TinySQLServer.
type jsonCodec struct{}

func (jsonCodec) Name() string                      { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
