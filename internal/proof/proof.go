// Package proof fabricates the display-only proof artifact shown after a
// mint. Its hex fields are independent random placeholders with no
// verification meaning. Producer is the seam where a real commitment scheme
// would plug in.
package proof

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/b0ase/path402/apps/poeminter/internal/accounting"
	"github.com/b0ase/path402/apps/poeminter/internal/wallet"
)

const (
	Protocol  = "groth16"
	Version   = "poe-1.0"
	CircuitID = "poe_energy_verification_v1"
)

// Artifact is the structured pseudo-proof record.
type Artifact struct {
	Protocol      string    `json:"protocol"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	PiA           string    `json:"pi_a"`
	PiB           string    `json:"pi_b"`
	PiC           string    `json:"pi_c"`
	Commitment    string    `json:"commitment"`
	CircuitID     string    `json:"circuit_id"`
	PublicSignals []string  `json:"public_signals"`

	DeviceIDHash string              `json:"device_id_hash,omitempty"`
	Attestation  *wallet.Attestation `json:"attestation,omitempty"`
}

// Producer builds an artifact for an accounting result.
type Producer interface {
	Produce(result accounting.Result) (*Artifact, error)
}

// RandomProducer fills the placeholders from a random source.
type RandomProducer struct {
	Rand io.Reader // crypto/rand when nil
	Now  func() time.Time
}

func (p *RandomProducer) Produce(result accounting.Result) (*Artifact, error) {
	src := p.Rand
	if src == nil {
		src = rand.Reader
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	var fields [4]string
	for i := range fields {
		h, err := randomHex(src)
		if err != nil {
			return nil, err
		}
		fields[i] = h
	}

	return &Artifact{
		Protocol:      Protocol,
		Version:       Version,
		Timestamp:     now().UTC(),
		PiA:           fields[0],
		PiB:           fields[1],
		PiC:           fields[2],
		Commitment:    fields[3],
		CircuitID:     CircuitID,
		PublicSignals: PublicSignals(result),
	}, nil
}

func randomHex(src io.Reader) (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(src, b); err != nil {
		return "", fmt.Errorf("read randomness: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}

// PublicSignals summarizes the accounting in human-readable strings.
func PublicSignals(r accounting.Result) []string {
	return []string{
		"total_energy=" + r.TotalEnergy.String(),
		"minted_amount=" + r.MintedAmount.String(),
		"primary_share=" + r.PrimaryShare.String(),
		"secondary_share=" + r.SecondaryShare.String(),
	}
}

// AttestingProducer wraps another producer and signs the result with the
// operator key, binding it to a hashed device identifier.
type AttestingProducer struct {
	Next     Producer
	Signer   *wallet.Wallet
	DeviceID string
}

func (p *AttestingProducer) Produce(result accounting.Result) (*Artifact, error) {
	art, err := p.Next.Produce(result)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(p.DeviceID))
	art.DeviceIDHash = hex.EncodeToString(sum[:])

	payload, err := json.Marshal(struct {
		DeviceIDHash  string   `json:"device_id_hash"`
		Timestamp     int64    `json:"timestamp"`
		Commitment    string   `json:"commitment"`
		PublicSignals []string `json:"public_signals"`
	}{art.DeviceIDHash, art.Timestamp.UnixMilli(), art.Commitment, art.PublicSignals})
	if err != nil {
		return nil, fmt.Errorf("marshal attestation payload: %w", err)
	}

	att, err := p.Signer.Attest(payload)
	if err != nil {
		return nil, fmt.Errorf("attest artifact: %w", err)
	}
	art.Attestation = &att
	return art, nil
}
