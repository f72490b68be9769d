package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNotRegistered = errors.New("wizard: codec not registered")

	Default = JSON

	// Codecs indexes the available codecs by name.
	Codecs = map[string]Codec{
		"json":     JSON,
		"msgpack":  MsgPack,
		"protobuf": ProtoBuf,
	}

	extensions = map[string]string{
		".json":    "json",
		".msgpack": "msgpack",
		".mp":      "msgpack",
		".pb":      "protobuf",
	}
)

type Codec interface {
	Name() string
	Marshal(interface{}) ([]byte, error)
	Unmarshal([]byte, interface{}) error
}

// Get returns the codec registered under name.
func Get(name string) (Codec, error) {
	c, ok := Codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return c, nil
}

// ForPath picks a codec from the file extension of path.
func ForPath(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	name, ok := extensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no codec for extension %q", ErrNotRegistered, ext)
	}
	return Get(name)
}
