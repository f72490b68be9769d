package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/wellcome-app/wizard/testutil"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type menu struct {
	Title  string    `json:"title" msgpack:"title"`
	Guests int       `json:"guests" msgpack:"guests"`
	Vegan  bool      `json:"vegan" msgpack:"vegan"`
	Date   time.Time `json:"date" msgpack:"date"`
	Dishes []string  `json:"dishes" msgpack:"dishes"`
	Next   *menu     `json:"next,omitempty" msgpack:"next,omitempty"`
}

func sampleMenu() *menu {
	return &menu{
		Title:  "Almoço de Domingo",
		Guests: 10,
		Vegan:  true,
		Date:   time.Date(2025, time.December, 24, 0, 0, 0, 0, time.UTC),
		Dishes: []string{"Feijoada", "Farofa"},
		Next:   &menu{Title: "Sobremesa", Guests: 4},
	}
}

func TestCodecsPreserveValues(t *testing.T) {
	is := testutil.NewIs(t)

	for name, c := range Codecs {
		t.Run(name, func(t *testing.T) {
			is.Equal(c.Name(), name)

			v1 := sampleMenu()
			b, err := c.Marshal(v1)
			is.NoErr(err)

			var v2 menu
			is.NoErr(c.Unmarshal(b, &v2))
			is.Equal(&v2, v1)
		})
	}
}

func TestProtoBufNativeMessage(t *testing.T) {
	is := testutil.NewIs(t)

	b, err := ProtoBuf.Marshal(wrapperspb.String("Feijoada"))
	is.NoErr(err)

	var v wrapperspb.StringValue
	is.NoErr(ProtoBuf.Unmarshal(b, &v))
	is.Equal(v.GetValue(), "Feijoada")
}

func TestProtoBufRejectsNonObjects(t *testing.T) {
	_, err := ProtoBuf.Marshal([]string{"a", "b"})
	if !errors.Is(err, proto.Error) {
		t.Errorf("expected proto.Error, got %v", err)
	}
}

func TestJSONEmptyInput(t *testing.T) {
	is := testutil.NewIs(t)

	v := menu{Title: "unchanged"}
	is.NoErr(JSON.Unmarshal(nil, &v))
	is.Equal(v.Title, "unchanged")
}

func TestForPath(t *testing.T) {
	is := testutil.NewIs(t)

	tests := map[string]string{
		"catalog.json":    "json",
		"CATALOG.JSON":    "json",
		"catalog.msgpack": "msgpack",
		"catalog.mp":      "msgpack",
		"catalog.pb":      "protobuf",
	}

	for path, want := range tests {
		c, err := ForPath(path)
		is.NoErr(err)
		is.Equal(c.Name(), want)
	}

	_, err := ForPath("catalog.yaml")
	is.Err(err, ErrNotRegistered)

	_, err = Get("xml")
	is.Err(err, ErrNotRegistered)
}

func BenchmarkMsgPackMarshal(b *testing.B) {
	v := sampleMenu()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		MsgPack.Marshal(v)
	}
}

func BenchmarkMsgPackUnmarshal(b *testing.B) {
	y, _ := MsgPack.Marshal(sampleMenu())
	var v menu

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		MsgPack.Unmarshal(y, &v)
	}
}
