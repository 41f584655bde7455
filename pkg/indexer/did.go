package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DIDPrefix is the method prefix of every asset identifier.
const DIDPrefix = "did:op:"

// ComputeDID derives the DID of the asset held by nft on chainID:
// sha256 over the checksummed NFT address followed by the decimal chain id.
func ComputeDID(nft common.Address, chainID uint64) string {
	sum := sha256.Sum256([]byte(nft.Hex() + strconv.FormatUint(chainID, 10)))
	return DIDPrefix + hex.EncodeToString(sum[:])
}

// IsDID reports whether s looks like an asset DID.
func IsDID(s string) bool {
	return strings.HasPrefix(s, DIDPrefix) && len(s) > len(DIDPrefix)
}
