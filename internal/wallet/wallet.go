// Package wallet holds the operator key that attests proof artifacts.
// Attestations are display metadata; nothing in the system verifies them.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	crypto "github.com/bsv-blockchain/go-sdk/primitives/hash"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/b0ase/path402/apps/poeminter/internal/logging"
)

const configKeyWIF = "attestor_wif"

// Wallet is a secp256k1 key with its derived P2PKH address.
type Wallet struct {
	privateKey *ec.PrivateKey
	PublicKey  []byte // 33-byte compressed public key
	Address    string // Base58Check P2PKH address (mainnet)
	WIF        string
}

// Attestation is a signature over the double-SHA256 of a payload.
type Attestation struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
}

// KeyStore persists the generated key between restarts of the same data dir.
type KeyStore interface {
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error
}

// Load creates a wallet from a WIF-encoded private key.
func Load(wif string) (*Wallet, error) {
	if wif == "" {
		return nil, errors.New("no attestor key provided")
	}
	privKey, err := ec.PrivateKeyFromWif(wif)
	if err != nil {
		return nil, fmt.Errorf("decode WIF: %w", err)
	}
	return fromKey(privKey, wif)
}

// Generate creates a new random wallet.
func Generate() (*Wallet, error) {
	privKey, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromKey(privKey, privKey.Wif())
}

func fromKey(privKey *ec.PrivateKey, wif string) (*Wallet, error) {
	addr, err := script.NewAddressFromPublicKey(privKey.PubKey(), true)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	return &Wallet{
		privateKey: privKey,
		PublicKey:  privKey.PubKey().Compressed(),
		Address:    addr.AddressString,
		WIF:        wif,
	}, nil
}

// LoadOrCreate resolves the operator key: an explicit WIF wins, then a key
// saved in store, then a freshly generated one which is saved. store may be
// nil, in which case generated keys live only for this process.
func LoadOrCreate(wif string, store KeyStore) (*Wallet, error) {
	log := logging.For("wallet")
	if wif != "" {
		w, err := Load(wif)
		if err != nil {
			return nil, err
		}
		log.WithField("address", w.Address).Info("Loaded configured attestor key")
		return w, nil
	}

	if store != nil {
		if saved, err := store.GetConfig(configKeyWIF); err == nil && saved != "" {
			w, err := Load(saved)
			if err == nil {
				log.WithField("address", w.Address).Info("Loaded persisted attestor key")
				return w, nil
			}
			log.WithError(err).Warn("Persisted attestor key unreadable, regenerating")
		}
	}

	w, err := Generate()
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.SetConfig(configKeyWIF, w.WIF); err != nil {
			log.WithError(err).Warn("Failed to persist attestor key")
		}
	}
	log.WithField("address", w.Address).Info("Generated attestor key")
	return w, nil
}

// Sign produces a DER-encoded ECDSA signature of the double-SHA256 of data.
func (w *Wallet) Sign(data []byte) ([]byte, error) {
	sig, err := w.privateKey.Sign(crypto.Sha256d(data))
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig.Serialize(), nil
}

// Attest signs payload and returns the hex-encoded attestation.
func (w *Wallet) Attest(payload []byte) (Attestation, error) {
	sig, err := w.Sign(payload)
	if err != nil {
		return Attestation{}, err
	}
	return Attestation{
		Address:   w.Address,
		PublicKey: hex.EncodeToString(w.PublicKey),
		Digest:    hex.EncodeToString(crypto.Sha256d(payload)),
		Signature: hex.EncodeToString(sig),
	}, nil
}
