package evm

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

func parseKey(pkHex string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(pkHex, "0x"))
}

// AddressFromKey derives the checksummed address of a hex private key.
func AddressFromKey(pkHex string) (string, error) {
	key, err := parseKey(pkHex)
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey).Hex(), nil
}
