package codec_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/blockweave/blockcore/foundation/blockchain/codec"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// =============================================================================

func Test_EncodeByteString(t *testing.T) {
	type table struct {
		name string
		in   codec.ByteString
		exp  string
	}

	tt := []table{
		{name: "empty", in: codec.ByteString(""), exp: "0:"},
		{name: "spam", in: codec.ByteString("spam"), exp: "4:spam"},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			got := string(codec.Encode(tst.in))
			if got != tst.exp {
				t.Fatalf("\t%s\tgot[%s] exp[%s]", failed, got, tst.exp)
			}
			t.Logf("\t%s\tencoded[%s]", success, got)
		})
	}
}

func Test_EncodeInteger(t *testing.T) {
	type table struct {
		name string
		in   int64
		exp  string
	}

	tt := []table{
		{name: "zero", in: 0, exp: "i0e"},
		{name: "positive", in: 42, exp: "i42e"},
		{name: "negative", in: -3, exp: "i-3e"},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			got := string(codec.Encode(codec.NewIntegerFromInt64(tst.in)))
			if got != tst.exp {
				t.Fatalf("\t%s\tgot[%s] exp[%s]", failed, got, tst.exp)
			}
		})
	}
}

func Test_EncodeListAndDict(t *testing.T) {
	list := codec.List{codec.ByteString("spam"), codec.ByteString("eggs")}
	if got, exp := string(codec.Encode(list)), "l4:spam4:eggse"; got != exp {
		t.Fatalf("\t%s\tgot[%s] exp[%s]", failed, got, exp)
	}

	d := codec.NewDict(
		codec.KV{Key: "cow", Value: codec.ByteString("moo")},
		codec.KV{Key: "spam", Value: codec.ByteString("eggs")},
	)
	if got, exp := string(codec.Encode(d)), "d3:cow3:moo4:spam4:eggse"; got != exp {
		t.Fatalf("\t%s\tgot[%s] exp[%s]", failed, got, exp)
	}
}

func Test_RoundTrip(t *testing.T) {
	d := codec.NewDict(
		codec.KV{Key: "difficulty", Value: codec.NewIntegerFromInt64(7)},
		codec.KV{Key: "nonce", Value: codec.ByteString([]byte{0x01, 0x02})},
		codec.KV{Key: "list", Value: codec.List{codec.NewIntegerFromInt64(1), codec.NewIntegerFromInt64(2)}},
	)

	encoded := codec.Encode(d)
	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("\t%s\tshould decode: %s", failed, err)
	}

	reEncoded := codec.Encode(decoded)
	if !bytes.Equal(encoded, reEncoded) {
		t.Fatalf("\t%s\tround-trip mismatch: got[%s] exp[%s]", failed, reEncoded, encoded)
	}
}

func Test_DecodeRejectsNonCanonical(t *testing.T) {
	type table struct {
		name string
		in   string
	}

	tt := []table{
		{name: "leading zero length", in: "04:spam"},
		{name: "leading zero integer", in: "i04e"},
		{name: "negative zero", in: "i-0e"},
		{name: "unsorted dict keys", in: "d4:spam4:eggs3:cow3:mooe"},
		{name: "trailing bytes", in: "i1ee"},
		{name: "unknown tag", in: "x"},
		{name: "truncated byte string", in: "5:spam"},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			if _, err := codec.Decode([]byte(tst.in)); err == nil {
				t.Fatalf("\t%s\tshould reject %q", failed, tst.in)
			}
		})
	}
}

func Test_IntegerBig(t *testing.T) {
	big1 := new(big.Int)
	big1.SetString("123456789012345678901234567890", 10)

	v := codec.NewInteger(big1)
	encoded := codec.Encode(v)

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("\t%s\tshould decode: %s", failed, err)
	}

	i, ok := decoded.(codec.Integer)
	if !ok {
		t.Fatalf("\t%s\tdecoded value is not an Integer", failed)
	}
	if i.Big().Cmp(big1) != 0 {
		t.Fatalf("\t%s\tgot[%s] exp[%s]", failed, i.Big(), big1)
	}
}
