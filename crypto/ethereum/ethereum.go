// Package ethereum provides the secp256k1 keys the sequencer uses to sign
// order receipts, with Ethereum compatible (EIP-191) signatures.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/z-orders/util"
)

const (
	// SigningPrefix is prepended to every message before hashing it.
	SigningPrefix = "\u0019Ethereum Signed Message:\n"
	// SignatureLength is the size of a signature: R, S and the recovery id.
	SignatureLength = ethcrypto.SignatureLength
)

// SignKeys holds a secp256k1 key pair.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys returns an empty SignKeys.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a hex encoded private key, with or without 0x prefix.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key, hex
// encoded without 0x prefix.
func (k *SignKeys) HexString() (string, string) {
	if k.Private.D == nil {
		return "", ""
	}
	pub := hex.EncodeToString(ethcrypto.CompressPubkey(&k.Public))
	priv := hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	if k.Public.X == nil {
		return nil
	}
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the key pair.
func (k *SignKeys) Address() common.Address {
	if k.Public.X == nil {
		return common.Address{}
	}
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed hex address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs the EIP-191 hash of message. The recovery id of the
// signature is 0 or 1.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, errors.New("no private key available")
	}
	return ethcrypto.Sign(Hash(message), &k.Private)
}

// Hash returns the keccak256 of message prefixed with SigningPrefix and its
// length.
func Hash(message []byte) []byte {
	return HashRaw([]byte(fmt.Sprintf("%s%d%s", SigningPrefix, len(message), message)))
}

// HashRaw returns the keccak256 of data.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// AddrFromSignature recovers the address that signed message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	pub, err := ethcrypto.SigToPub(Hash(message), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// AddrFromPublicKey returns the address of a compressed or uncompressed
// public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	var key *ecdsa.PublicKey
	var err error
	switch len(pub) {
	case 33:
		key, err = ethcrypto.DecompressPubkey(pub)
	case 65:
		key, err = ethcrypto.UnmarshalPubkey(pub)
	default:
		return common.Address{}, fmt.Errorf("invalid public key length %d", len(pub))
	}
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*key), nil
}
