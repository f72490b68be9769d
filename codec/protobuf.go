package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ProtoBuf Codec = &protoBufCodec{}
)

// protoBufCodec encodes proto messages natively. Any other value must have an
// object-shaped JSON form and travels as a google.protobuf.Struct.
type protoBufCodec struct{}

func (*protoBufCodec) Name() string {
	return "protobuf"
}

func (*protoBufCodec) Marshal(v interface{}) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}

	j, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", proto.Error, err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(j, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: %T is neither a proto.Message nor an object", proto.Error, v)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", proto.Error, err)
	}
	return proto.Marshal(s)
}

func (*protoBufCodec) Unmarshal(b []byte, v interface{}) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(b, m)
	}

	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return err
	}

	j, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("%w: %s", proto.Error, err)
	}
	return json.Unmarshal(j, v)
}
