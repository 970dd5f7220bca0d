// Package digest provides the canonical hashing used to link blocks together
// and to check proof of work guesses.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hash returns the lowercase hex encoded SHA-256 of the canonical form of
// the value. No hash is returned when the value can't be encoded.
func Hash(value any) (string, error) {
	data, err := Canonical(value)
	if err != nil {
		return "", err
	}

	return Sum(data), nil
}

// Sum returns the lowercase hex encoded SHA-256 of the data.
func Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return common.Bytes2Hex(hash[:])
}

// Canonical returns the JSON form of the value with the keys of every object
// sorted by name. Two values holding the same fields produce the same bytes
// regardless of struct field order or map iteration order.
func Canonical(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	// Round trip through a generic value so every object becomes a map, which
	// the encoder writes out in key order. UseNumber keeps the original number
	// text so floats are not re-rounded.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("marshal canonical: %w", err)
	}

	return canonical, nil
}

// Display returns the hash in the 0x prefixed form used when showing hashes
// to people. Values that are not valid hex are returned as is.
func Display(hash string) string {
	b := common.FromHex(hash)
	if len(b) == 0 || common.Bytes2Hex(b) != hash {
		return hash
	}

	return hexutil.Encode(b)
}
