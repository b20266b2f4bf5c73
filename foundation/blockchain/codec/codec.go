// Package codec implements the canonical dictionary encoding used to turn
// block and transaction values into the exact byte sequence that consensus
// hashes are taken over. The encoding has exactly one valid form per value:
// byte strings are length-prefixed ASCII decimal, integers are decimal ASCII
// bracketed by 'i'/'e', lists are bracketed by 'l'/'e', and dictionaries are
// bracketed by 'd'/'e' with keys sorted by the raw bytes of their own
// encoding. Decode only accepts this canonical form.
package codec

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrDecoding is returned for any byte stream that is not a canonical
// encoding of a Value.
var ErrDecoding = errors.New("codec: not a canonical encoding")

// Value is any value the codec can encode: ByteString, Integer, List, or Dict.
type Value interface {
	Encode() []byte
}

// =============================================================================

// ByteString is a raw byte sequence, encoded as len(b) ASCII decimal, ':',
// then the raw bytes.
type ByteString []byte

// Encode implements Value.
func (b ByteString) Encode() []byte {
	out := append([]byte(fmt.Sprintf("%d:", len(b))), b...)
	return out
}

// Bytes returns the underlying byte slice.
func (b ByteString) Bytes() []byte {
	return []byte(b)
}

// =============================================================================

// Integer is an arbitrary precision signed integer, encoded as 'i', decimal
// ASCII with no leading zeros and no "-0", then 'e'.
type Integer struct {
	v *big.Int
}

// NewInteger wraps a big.Int as a codec Integer.
func NewInteger(v *big.Int) Integer {
	return Integer{v: new(big.Int).Set(v)}
}

// NewIntegerFromInt64 wraps an int64 as a codec Integer.
func NewIntegerFromInt64(v int64) Integer {
	return Integer{v: big.NewInt(v)}
}

// Big returns the underlying big.Int.
func (i Integer) Big() *big.Int {
	return new(big.Int).Set(i.v)
}

// Int64 returns the underlying value truncated to int64.
func (i Integer) Int64() int64 {
	return i.v.Int64()
}

// Encode implements Value.
func (i Integer) Encode() []byte {
	return []byte(fmt.Sprintf("i%se", i.v.String()))
}

// =============================================================================

// List is an ordered sequence of values, encoded as 'l', each element's
// encoding in order, then 'e'.
type List []Value

// Encode implements Value.
func (l List) Encode() []byte {
	out := []byte{'l'}
	for _, v := range l {
		out = append(out, v.Encode()...)
	}
	return append(out, 'e')
}

// =============================================================================

// KV is a single dictionary entry supplied to NewDict.
type KV struct {
	Key   string
	Value Value
}

// Dict is a dictionary keyed by byte strings, encoded as 'd', each entry's
// key and value encodings in sorted-key order, then 'e'. The sort order is
// the raw-byte lexicographic order of the encoded key.
type Dict struct {
	entries []dictEntry
}

type dictEntry struct {
	key     ByteString
	encoded []byte
	value   Value
}

// NewDict builds a Dict from the given entries, sorting them by the raw
// bytes of their encoded key as canonical form requires. Duplicate keys are
// rejected: NewDict panics if two entries share a key.
func NewDict(kvs ...KV) Dict {
	entries := make([]dictEntry, 0, len(kvs))
	for _, kv := range kvs {
		key := ByteString(kv.Key)
		entries = append(entries, dictEntry{key: key, encoded: key.Encode(), value: kv.Value})
	}
	sort.Slice(entries, func(i, j int) bool {
		return string(entries[i].encoded) < string(entries[j].encoded)
	})
	for i := 1; i < len(entries); i++ {
		if string(entries[i].encoded) == string(entries[i-1].encoded) {
			panic(fmt.Sprintf("codec: duplicate dict key %q", string(entries[i].key)))
		}
	}
	return Dict{entries: entries}
}

// Encode implements Value.
func (d Dict) Encode() []byte {
	out := []byte{'d'}
	for _, e := range d.entries {
		out = append(out, e.encoded...)
		out = append(out, e.value.Encode()...)
	}
	return append(out, 'e')
}

// Get returns the value stored under key, if present.
func (d Dict) Get(key string) (Value, bool) {
	for _, e := range d.entries {
		if string(e.key) == key {
			return e.value, true
		}
	}
	return nil, false
}

// Keys returns the dictionary's keys in their canonical sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = string(e.key)
	}
	return keys
}

// =============================================================================

// Encode returns the canonical encoding of v.
func Encode(v Value) []byte {
	return v.Encode()
}

// Decode parses the canonical encoding of exactly one Value from data. It
// fails with ErrDecoding if data contains trailing bytes, a malformed
// length or integer, unsorted dictionary keys, or an unrecognised tag.
func Decode(data []byte) (Value, error) {
	v, rest, err := decodeValue(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing byte(s)", ErrDecoding, len(rest))
	}
	return v, nil
}

func decodeValue(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: unexpected end of input", ErrDecoding)
	}

	switch {
	case data[0] == 'i':
		return decodeInteger(data)
	case data[0] == 'l':
		return decodeList(data)
	case data[0] == 'd':
		return decodeDict(data)
	case data[0] >= '0' && data[0] <= '9':
		return decodeByteString(data)
	default:
		return nil, nil, fmt.Errorf("%w: unknown tag %q", ErrDecoding, data[0])
	}
}

func decodeByteString(data []byte) (Value, []byte, error) {
	colon := -1
	for i, b := range data {
		if b == ':' {
			colon = i
			break
		}
		if b < '0' || b > '9' {
			return nil, nil, fmt.Errorf("%w: malformed byte string length", ErrDecoding)
		}
	}
	if colon < 0 {
		return nil, nil, fmt.Errorf("%w: byte string missing ':'", ErrDecoding)
	}

	lenStr := string(data[:colon])
	if len(lenStr) > 1 && lenStr[0] == '0' {
		return nil, nil, fmt.Errorf("%w: byte string length has leading zero", ErrDecoding)
	}

	n := new(big.Int)
	if _, ok := n.SetString(lenStr, 10); !ok {
		return nil, nil, fmt.Errorf("%w: malformed byte string length", ErrDecoding)
	}
	if !n.IsInt64() {
		return nil, nil, fmt.Errorf("%w: byte string length too large", ErrDecoding)
	}
	length := int(n.Int64())

	start := colon + 1
	if start+length > len(data) {
		return nil, nil, fmt.Errorf("%w: byte string runs past end of input", ErrDecoding)
	}

	return ByteString(data[start : start+length]), data[start+length:], nil
}

func decodeInteger(data []byte) (Value, []byte, error) {
	end := -1
	for i := 1; i < len(data); i++ {
		if data[i] == 'e' {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, nil, fmt.Errorf("%w: integer missing terminator", ErrDecoding)
	}

	body := string(data[1:end])
	if body == "" {
		return nil, nil, fmt.Errorf("%w: empty integer", ErrDecoding)
	}
	if body == "-0" {
		return nil, nil, fmt.Errorf("%w: negative zero is not canonical", ErrDecoding)
	}
	neg := body[0] == '-'
	digits := body
	if neg {
		digits = body[1:]
	}
	if digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return nil, nil, fmt.Errorf("%w: integer has leading zero", ErrDecoding)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return nil, nil, fmt.Errorf("%w: malformed integer", ErrDecoding)
		}
	}

	n, ok := new(big.Int).SetString(body, 10)
	if !ok {
		return nil, nil, fmt.Errorf("%w: malformed integer", ErrDecoding)
	}

	return NewInteger(n), data[end+1:], nil
}

func decodeList(data []byte) (Value, []byte, error) {
	rest := data[1:]
	var items List
	for {
		if len(rest) == 0 {
			return nil, nil, fmt.Errorf("%w: list missing terminator", ErrDecoding)
		}
		if rest[0] == 'e' {
			return items, rest[1:], nil
		}
		v, next, err := decodeValue(rest)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, v)
		rest = next
	}
}

func decodeDict(data []byte) (Value, []byte, error) {
	rest := data[1:]
	var entries []dictEntry
	var prevEncodedKey []byte
	for {
		if len(rest) == 0 {
			return nil, nil, fmt.Errorf("%w: dict missing terminator", ErrDecoding)
		}
		if rest[0] == 'e' {
			return Dict{entries: entries}, rest[1:], nil
		}

		keyVal, next, err := decodeByteString(rest)
		if err != nil {
			return nil, nil, err
		}
		key := keyVal.(ByteString)
		encodedKey := key.Encode()
		if prevEncodedKey != nil && string(encodedKey) <= string(prevEncodedKey) {
			return nil, nil, fmt.Errorf("%w: dict keys not in canonical order", ErrDecoding)
		}
		prevEncodedKey = encodedKey

		val, next2, err := decodeValue(next)
		if err != nil {
			return nil, nil, err
		}

		entries = append(entries, dictEntry{key: key, encoded: encodedKey, value: val})
		rest = next2
	}
}
