// Package session owns one run of the Proof-of-Energy pipeline: dataset,
// accounting, mint, bridge and settlement. Callers observe progress through
// State and Snapshot; they never drive the state directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/b0ase/path402/apps/poeminter/internal/accounting"
	"github.com/b0ase/path402/apps/poeminter/internal/assets"
	"github.com/b0ase/path402/apps/poeminter/internal/bridge"
	"github.com/b0ase/path402/apps/poeminter/internal/dataset"
	"github.com/b0ase/path402/apps/poeminter/internal/events"
	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
	"github.com/b0ase/path402/apps/poeminter/internal/logging"
	"github.com/b0ase/path402/apps/poeminter/internal/proof"
	"github.com/b0ase/path402/apps/poeminter/internal/settlement"
)

var (
	ErrNothingToProcess  = errors.New("dataset contains no valid samples")
	ErrInvalidState      = errors.New("operation not allowed in current pipeline state")
	ErrOperationInFlight = errors.New("operation already in progress")
	ErrUncertifiedDevice = errors.New("device not certified")
)

// DeviceError rejects a mint from a metering device that is not on the
// certified list. It matches ErrUncertifiedDevice.
type DeviceError struct {
	DeviceID string
}

func (e *DeviceError) Error() string {
	if e.DeviceID == "" {
		return "mint rejected: no metering device configured"
	}
	return fmt.Sprintf("mint rejected: device %q is not certified", e.DeviceID)
}

func (e *DeviceError) Unwrap() error { return ErrUncertifiedDevice }

// MintedSymbol labels the minted token in ledger entries.
const MintedSymbol = "POE"

// Operation names a guarded, delayed pipeline step.
type Operation string

const (
	OpMint   Operation = "mint"
	OpBridge Operation = "bridge"
	OpSettle Operation = "settle"
)

// Delays paces the simulated steps. Zero means no wait.
type Delays struct {
	Mint   time.Duration
	Bridge time.Duration
	Settle time.Duration
}

// Options configures a Session. Ledger, Registry and Producer are required.
//
// DeviceID names the metering device the datasets come from. When
// CertifiedDevices is non-empty, Mint only proceeds for a listed DeviceID.
type Options struct {
	Ledger           *ledger.Ledger
	Registry         *assets.Registry
	Chain            bridge.Chain
	Producer         proof.Producer
	Publisher        events.Publisher
	Topic            string
	RunID            string
	Delays           Delays
	DeviceID         string
	CertifiedDevices []string
}

// Totals are cumulative amounts for the run.
type Totals struct {
	Minted      decimal.Decimal `json:"minted"`
	Bridged     decimal.Decimal `json:"bridged"`
	Burned      decimal.Decimal `json:"burned"`
	FiatPaidOut decimal.Decimal `json:"fiat_paid_out_usd"`
}

// Snapshot is a consistent read of the session.
type Snapshot struct {
	State          State             `json:"state"`
	SampleCount    int               `json:"sample_count"`
	Result         accounting.Result `json:"result"`
	PrimaryBalance decimal.Decimal   `json:"primary_balance"`
	Totals         Totals            `json:"totals"`
	InFlight       []Operation       `json:"in_flight"`
	Chain          bridge.Chain      `json:"bridge_chain"`
	RunID          string            `json:"run_id,omitempty"`
	DeviceID       string            `json:"device_id,omitempty"`

	// DeviceEnergy is the energy minted per device over the run.
	DeviceEnergy map[string]decimal.Decimal `json:"device_energy"`
}

// Session is the pipeline context object. All methods are safe for
// concurrent use.
type Session struct {
	ledger    *ledger.Ledger
	registry  *assets.Registry
	chain     bridge.Chain
	producer  proof.Producer
	publisher events.Publisher
	topic     string
	runID     string
	delays    Delays
	deviceID  string
	certified map[string]bool
	log       *logrus.Entry

	mu           sync.Mutex
	state        State
	samples      []dataset.Sample
	result       accounting.Result
	primary      decimal.Decimal
	totals       Totals
	artifact     *proof.Artifact
	inFlight     map[Operation]bool
	deviceEnergy map[string]decimal.Decimal
}

// New creates an idle session.
func New(opts Options) *Session {
	pub := opts.Publisher
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	var certified map[string]bool
	if len(opts.CertifiedDevices) > 0 {
		certified = make(map[string]bool, len(opts.CertifiedDevices))
		for _, id := range opts.CertifiedDevices {
			certified[id] = true
		}
	}
	return &Session{
		ledger:       opts.Ledger,
		registry:     opts.Registry,
		chain:        opts.Chain,
		producer:     opts.Producer,
		publisher:    pub,
		topic:        opts.Topic,
		runID:        opts.RunID,
		delays:       opts.Delays,
		deviceID:     opts.DeviceID,
		certified:    certified,
		log:          logging.For("session"),
		state:        Idle,
		inFlight:     make(map[Operation]bool),
		deviceEnergy: make(map[string]decimal.Decimal),
	}
}

// LoadDataset reads and parses a dataset, replacing any previous one.
// Read failures are reported as dataset.ErrUnreadable and leave the session
// untouched.
func (s *Session) LoadDataset(r io.Reader) (int, error) {
	samples, err := dataset.Read(r)
	if err != nil {
		return 0, err
	}
	return s.setSamples(samples)
}

// LoadContent parses an in-memory dataset.
func (s *Session) LoadContent(content string) (int, error) {
	return s.setSamples(dataset.Parse(content))
}

func (s *Session) setSamples(samples []dataset.Sample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.anyInFlightLocked() {
		return 0, ErrOperationInFlight
	}
	s.samples = samples
	s.result = accounting.Result{}
	s.primary = decimal.Zero
	s.artifact = nil
	s.state = DatasetLoaded

	s.log.WithField("samples", len(samples)).Info("Dataset loaded")
	return len(samples), nil
}

// Account computes the accounting result for the loaded dataset and funds
// the primary balance. Re-accounting an unchanged dataset is idempotent;
// once minted, a new dataset must be loaded first.
func (s *Session) Account() (accounting.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.anyInFlightLocked() {
		return accounting.Result{}, ErrOperationInFlight
	}
	if s.state != DatasetLoaded && s.state != Accounted {
		return accounting.Result{}, fmt.Errorf("%w: account from %s", ErrInvalidState, s.state)
	}
	if len(s.samples) == 0 {
		return accounting.Result{}, ErrNothingToProcess
	}

	s.result = accounting.Compute(s.samples)
	s.primary = s.result.PrimaryShare
	s.state = Accounted

	s.log.WithFields(logrus.Fields{
		"energy": s.result.TotalEnergy.String(),
		"minted": s.result.MintedAmount.String(),
	}).Info("Accounting complete")
	return s.result, nil
}

// Mint waits out the mint delay, produces the proof artifact and records a
// mint entry for the full minted amount. The metering device must be
// certified when a certified list is configured.
func (s *Session) Mint(ctx context.Context) (*proof.Artifact, ledger.Entry, error) {
	result, err := s.begin(OpMint, func() error {
		if s.state != Accounted {
			return fmt.Errorf("%w: mint from %s", ErrInvalidState, s.state)
		}
		if s.certified != nil && !s.certified[s.deviceID] {
			return &DeviceError{DeviceID: s.deviceID}
		}
		return nil
	})
	if err != nil {
		return nil, ledger.Entry{}, err
	}
	defer s.end(OpMint)

	if err := wait(ctx, s.delays.Mint); err != nil {
		return nil, ledger.Entry{}, err
	}

	art, err := s.producer.Produce(result)
	if err != nil {
		return nil, ledger.Entry{}, fmt.Errorf("produce proof: %w", err)
	}

	desc := fmt.Sprintf("Minted %s %s from %s kWh", result.MintedAmount, MintedSymbol, result.TotalEnergy)
	entry, err := s.record(ctx, ledger.NewEntry(ledger.KindMint, result.MintedAmount, MintedSymbol, desc))
	if err != nil {
		return nil, ledger.Entry{}, err
	}

	s.mu.Lock()
	s.artifact = art
	s.totals.Minted = s.totals.Minted.Add(result.MintedAmount)
	if s.deviceID != "" {
		s.deviceEnergy[s.deviceID] = s.deviceEnergy[s.deviceID].Add(result.TotalEnergy)
	}
	s.state = Distributed
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"amount": result.MintedAmount.String(),
		"device": s.deviceID,
	}).Info("Mint confirmed")
	return art, entry, nil
}

// Bridge validates address against the configured chain, waits out the
// bridge delay and records a bridge entry for the full minted amount.
// Balances are not changed.
func (s *Session) Bridge(ctx context.Context, address string) (ledger.Entry, error) {
	result, err := s.begin(OpBridge, func() error {
		if s.state != Distributed {
			return fmt.Errorf("%w: bridge from %s", ErrInvalidState, s.state)
		}
		if s.result.MintedAmount.IsZero() {
			return ErrNothingToProcess
		}
		return s.chain.Validate(address)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	defer s.end(OpBridge)

	if err := wait(ctx, s.delays.Bridge); err != nil {
		return ledger.Entry{}, err
	}

	amount := result.MintedAmount
	desc := fmt.Sprintf("Bridged %s %s to %s", amount, MintedSymbol, s.chain.Name)
	entry, err := s.record(ctx, ledger.NewEntry(ledger.KindBridge, amount, s.chain.Symbol, desc))
	if err != nil {
		return ledger.Entry{}, err
	}

	s.mu.Lock()
	s.totals.Bridged = s.totals.Bridged.Add(amount)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"amount": amount.String(), "chain": s.chain.Name}).Info("Bridge confirmed")
	return entry, nil
}

// Settle burns the primary share against a payout asset. A zero amount
// means the whole current primary share; any other amount must equal it.
// Validation happens before the delay. The burn entry carries exactly the
// amount removed from the balance.
func (s *Session) Settle(ctx context.Context, req settlement.Request) (settlement.Receipt, error) {
	var asset assets.Asset
	_, err := s.begin(OpSettle, func() error {
		if s.state != Distributed {
			return fmt.Errorf("%w: settle from %s", ErrInvalidState, s.state)
		}
		if req.Amount.IsZero() {
			req.Amount = s.primary
		}
		a, err := settlement.Validate(req, s.primary, s.registry)
		asset = a
		return err
	})
	if err != nil {
		return settlement.Receipt{}, err
	}
	defer s.end(OpSettle)

	if err := wait(ctx, s.delays.Settle); err != nil {
		return settlement.Receipt{}, err
	}

	receipt := settlement.NewReceipt(req, asset)
	desc := fmt.Sprintf("Burned %s %s for $%s in %s", receipt.Amount, MintedSymbol, receipt.FiatValue.StringFixed(2), asset.Symbol)
	if _, err := s.record(ctx, ledger.NewEntry(ledger.KindBurn, receipt.Amount, asset.Symbol, desc)); err != nil {
		return settlement.Receipt{}, err
	}

	s.mu.Lock()
	s.primary = s.primary.Sub(receipt.Amount)
	s.totals.Burned = s.totals.Burned.Add(receipt.Amount)
	s.totals.FiatPaidOut = s.totals.FiatPaidOut.Add(receipt.FiatValue)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"amount": receipt.Amount.String(),
		"asset":  asset.Symbol,
		"usd":    receipt.FiatValue.StringFixed(2),
	}).Info("Settlement confirmed")
	return receipt, nil
}

// State returns the current pipeline state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the observable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	inFlight := []Operation{}
	for _, op := range []Operation{OpMint, OpBridge, OpSettle} {
		if s.inFlight[op] {
			inFlight = append(inFlight, op)
		}
	}
	energy := make(map[string]decimal.Decimal, len(s.deviceEnergy))
	for id, e := range s.deviceEnergy {
		energy[id] = e
	}
	return Snapshot{
		State:          s.state,
		SampleCount:    len(s.samples),
		Result:         s.result,
		PrimaryBalance: s.primary,
		Totals:         s.totals,
		InFlight:       inFlight,
		Chain:          s.chain,
		RunID:          s.runID,
		DeviceID:       s.deviceID,
		DeviceEnergy:   energy,
	}
}

// Proof returns the artifact from the last mint, or nil.
func (s *Session) Proof() *proof.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifact
}

// Ledger returns entries of one kind, newest first.
func (s *Session) Ledger(ctx context.Context, kind ledger.Kind) ([]ledger.Entry, error) {
	return s.ledger.Filter(ctx, kind)
}

// Assets lists the registered payout assets.
func (s *Session) Assets() []assets.Asset {
	return s.registry.All()
}

// begin claims the single-flight slot for op after check passes, both under
// the session lock. It returns the accounting result the operation works on.
func (s *Session) begin(op Operation, check func() error) (accounting.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[op] {
		return accounting.Result{}, fmt.Errorf("%w: %s", ErrOperationInFlight, op)
	}
	if err := check(); err != nil {
		return accounting.Result{}, err
	}
	s.inFlight[op] = true
	return s.result, nil
}

func (s *Session) end(op Operation) {
	s.mu.Lock()
	delete(s.inFlight, op)
	s.mu.Unlock()
}

func (s *Session) anyInFlightLocked() bool {
	return len(s.inFlight) > 0
}

// record appends e to the ledger and announces it. A failed publish is
// logged; the entry stands.
func (s *Session) record(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	entry, err := s.ledger.Append(ctx, e)
	if err != nil {
		return ledger.Entry{}, err
	}
	if err := s.publisher.Publish(ctx, s.topic, events.FromEntry(entry, s.runID)); err != nil {
		s.log.WithError(err).WithField("entry", entry.ID).Warn("Failed to publish ledger event")
	}
	return entry, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
