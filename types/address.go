package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// BurnAddress is the sentinel destination for burned funds, nobody holds its key.
var BurnAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// ParseAddress parses hex encoded (with or without 0x prefix) 20 byte address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

/*
OrderedPair returns "a" and "b" sorted by their byte value so that
(a, b) and (b, a) give the same result.
*/
func OrderedPair(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		return b, a
	}
	return a, b
}
