package daemon

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/b0ase/path402/apps/poeminter/internal/assets"
	"github.com/b0ase/path402/apps/poeminter/internal/bridge"
	"github.com/b0ase/path402/apps/poeminter/internal/config"
	"github.com/b0ase/path402/apps/poeminter/internal/db"
	"github.com/b0ase/path402/apps/poeminter/internal/events"
	"github.com/b0ase/path402/apps/poeminter/internal/events/kafka"
	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
	"github.com/b0ase/path402/apps/poeminter/internal/logging"
	"github.com/b0ase/path402/apps/poeminter/internal/proof"
	"github.com/b0ase/path402/apps/poeminter/internal/server"
	"github.com/b0ase/path402/apps/poeminter/internal/session"
	"github.com/b0ase/path402/apps/poeminter/internal/wallet"
)

const (
	LedgerMemory = "memory"

	EventsNone    = "none"
	EventsWebhook = "webhook"
	EventsKafka   = "kafka"
)

// Daemon orchestrates all poeminter subsystems.
type Daemon struct {
	cfg       *config.Config
	version   string
	nodeID    string
	startTime time.Time
	db        *db.DB
	wallet    *wallet.Wallet
	publisher events.Publisher
	session   *session.Session
	httpSrv   *server.Server
	log       *logrus.Entry
	stopCh    chan struct{}
}

// New creates a new daemon instance. version is reported by the HTTP API.
func New(cfg *config.Config, version string) (*Daemon, error) {
	return &Daemon{cfg: cfg, version: version, log: logging.For("daemon"), stopCh: make(chan struct{})}, nil
}

// Start initializes and starts all subsystems in order.
func (d *Daemon) Start() error {
	d.startTime = time.Now()

	// 1. Ledger store
	store, runID, err := d.openLedger()
	if err != nil {
		return err
	}
	d.log.WithField("driver", d.LedgerDriver()).Infof("Node ID: %s", d.nodeID[:16])

	// 2. Attestor key
	var producer proof.Producer = &proof.RandomProducer{}
	if d.cfg.Attestor.Enabled {
		var keys wallet.KeyStore
		if d.db != nil {
			keys = d.db
		}
		w, err := wallet.LoadOrCreate(d.cfg.Attestor.Key, keys)
		if err != nil {
			d.closeDB()
			return fmt.Errorf("attestor key: %w", err)
		}
		d.wallet = w
		producer = &proof.AttestingProducer{Next: producer, Signer: w, DeviceID: d.cfg.Attestor.DeviceID}
	}

	// 3. Event publisher
	pub, err := newPublisher(d.cfg.Events)
	if err != nil {
		d.closeDB()
		return err
	}
	d.publisher = pub
	d.log.WithField("mode", d.cfg.Events.Mode).Info("Ledger events configured")

	// 4. Session
	d.checkDevice()
	d.session = session.New(session.Options{
		Ledger:   ledger.New(store),
		Registry: assets.Default(),
		Chain: bridge.Chain{
			Name:          d.cfg.Bridge.Chain,
			Symbol:        d.cfg.Bridge.Symbol,
			AddressPrefix: d.cfg.Bridge.AddressPrefix,
		},
		Producer:  producer,
		Publisher: pub,
		Topic:     d.cfg.Events.Topic,
		RunID:     runID,
		Delays: session.Delays{
			Mint:   d.cfg.Session.MintDelay,
			Bridge: d.cfg.Session.BridgeDelay,
			Settle: d.cfg.Session.SettleDelay,
		},
		DeviceID:         d.cfg.Attestor.DeviceID,
		CertifiedDevices: d.cfg.Attestor.CertifiedDevices,
	})

	// 5. Periodic status logging
	go d.statusLoop()

	// 6. HTTP API
	if d.cfg.API.Enabled {
		d.httpSrv = server.New(d.version, d.cfg.API.Bind, d.cfg.API.Port, d, d.session)
		if port, err := d.httpSrv.Start(); err != nil {
			d.log.WithError(err).Warn("HTTP API failed to start")
			d.httpSrv = nil
		} else {
			d.log.Infof("HTTP API on port %d", port)
		}
	}

	d.log.Info("All systems online")
	return nil
}

func (d *Daemon) openLedger() (ledger.Store, string, error) {
	if d.cfg.Ledger.Driver == "" || d.cfg.Ledger.Driver == LedgerMemory {
		id, err := randomNodeID()
		if err != nil {
			return nil, "", err
		}
		d.nodeID = id
		return ledger.NewMemoryStore(), "", nil
	}

	conn, err := db.Open(d.cfg.Ledger.Driver, d.cfg.DBPath())
	if err != nil {
		return nil, "", fmt.Errorf("db open: %w", err)
	}
	nodeID, err := conn.GetNodeID()
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("get node id: %w", err)
	}
	d.db = conn
	d.nodeID = nodeID
	return db.NewLedgerStore(conn), conn.RunID(), nil
}

func (d *Daemon) closeDB() {
	if d.db == nil {
		return
	}
	if err := d.db.Close(); err != nil {
		d.log.WithError(err).Warn("Failed to close ledger database")
	}
	d.db = nil
}

func (d *Daemon) checkDevice() {
	devices := d.cfg.Attestor.CertifiedDevices
	if len(devices) == 0 {
		d.log.Warn("No certified devices configured, mints are not device-checked")
		return
	}
	for _, id := range devices {
		if id == d.cfg.Attestor.DeviceID {
			return
		}
	}
	d.log.WithField("device", d.cfg.Attestor.DeviceID).Warn("Metering device is not certified, mints will be refused")
}

func randomNodeID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("node id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Mode {
	case "", EventsNone:
		return events.NoopPublisher{}, nil
	case EventsWebhook:
		if cfg.URL == "" {
			return nil, fmt.Errorf("events: webhook mode requires url")
		}
		return events.NewWebhookPublisher(cfg.URL, cfg.Timeout), nil
	case EventsKafka:
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("events: kafka mode requires brokers")
		}
		return kafka.NewPublisher(cfg.Brokers), nil
	default:
		return nil, fmt.Errorf("events: unknown mode %q", cfg.Mode)
	}
}

func (d *Daemon) statusLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			snap := d.session.Snapshot()
			d.log.WithFields(logrus.Fields{
				"state":   snap.State.String(),
				"minted":  snap.Totals.Minted.String(),
				"bridged": snap.Totals.Bridged.String(),
				"burned":  snap.Totals.Burned.String(),
			}).Info("Status")
		}
	}
}

// Stop shuts down all subsystems.
func (d *Daemon) Stop() {
	d.log.Info("Shutting down...")
	close(d.stopCh)

	if d.httpSrv != nil {
		d.httpSrv.Stop()
	}
	if c, ok := d.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			d.log.WithError(err).Warn("Failed to close event publisher")
		}
	}
	d.closeDB()

	d.log.Info("Shutdown complete")
}

// Session returns the pipeline session. Nil before Start.
func (d *Daemon) Session() *session.Session { return d.session }

// --- Status accessors (used by HTTP API and MCP) ---

func (d *Daemon) NodeID() string        { return d.nodeID }
func (d *Daemon) Uptime() time.Duration { return time.Since(d.startTime) }

func (d *Daemon) AttestorAddress() string {
	if d.wallet == nil {
		return ""
	}
	return d.wallet.Address
}

func (d *Daemon) LedgerDriver() string {
	if d.db != nil {
		return d.db.Driver()
	}
	return LedgerMemory
}
