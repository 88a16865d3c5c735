package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/shopspring/decimal"

	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
	"github.com/b0ase/path402/apps/poeminter/internal/settlement"
)

// --- Input types ---

type emptyInput struct{}

type ledgerInput struct {
	Kind  string `json:"kind,omitempty" jsonschema:"mint, bridge, burn or all (default all)"`
	Limit int    `json:"limit,omitempty" jsonschema:"max number of entries to return (0 = all)"`
}

type loadDatasetInput struct {
	Content string `json:"content,omitempty" jsonschema:"dataset text, one 'timestamp_ms,change' sample per line"`
	Path    string `json:"path,omitempty" jsonschema:"path to a dataset file on the daemon host"`
}

type bridgeInput struct {
	Address string `json:"address" jsonschema:"destination address on the secondary chain"`
}

type settleInput struct {
	Asset   string `json:"asset" jsonschema:"payout asset symbol, e.g. BTC"`
	Address string `json:"address" jsonschema:"destination address for the payout asset"`
	Amount  string `json:"amount,omitempty" jsonschema:"amount to burn; must equal the primary share (default: the whole share)"`
}

// registerTools adds all poeminter MCP tools to the server.
func (s *MCPServer) registerTools() {
	// Read-only tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_status",
		Description: "Pipeline status: state, accounting result, primary balance, run totals, per-device energy",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_assets",
		Description: "Payout assets a settlement can target, with their address formats",
	}, s.handleAssets)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_ledger",
		Description: "Ledger entries, newest first, optionally filtered by kind",
	}, s.handleLedger)

	// Pipeline tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_load_dataset",
		Description: "Load a voltage-change dataset and compute the accounting result",
	}, s.handleLoadDataset)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_mint",
		Description: "Mint the accounted amount from the certified metering device and produce the proof artifact",
	}, s.handleMint)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_bridge",
		Description: "Bridge the minted amount to the secondary chain",
	}, s.handleBridge)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "poe_settle",
		Description: "Burn the primary share against a payout asset at the fixed USD peg",
	}, s.handleSettle)
}

// --- Handlers ---

func (s *MCPServer) handleStatus(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	snap := s.session.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "# poeminter Status\n\n")
	fmt.Fprintf(&b, "**Node ID:** `%s`\n", s.daemon.NodeID())
	fmt.Fprintf(&b, "**Uptime:** %s\n", s.daemon.Uptime().Round(1e9))
	if addr := s.daemon.AttestorAddress(); addr != "" {
		fmt.Fprintf(&b, "**Attestor:** `%s`\n", addr)
	}
	fmt.Fprintf(&b, "**Ledger:** %s\n\n", s.daemon.LedgerDriver())

	fmt.Fprintf(&b, "## Pipeline\n")
	fmt.Fprintf(&b, "- State: %s\n", snap.State)
	fmt.Fprintf(&b, "- Samples: %d\n", snap.SampleCount)
	fmt.Fprintf(&b, "- Total energy: %s kWh\n", snap.Result.TotalEnergy)
	fmt.Fprintf(&b, "- Minted: %s\n", snap.Result.MintedAmount)
	fmt.Fprintf(&b, "- Primary share: %s (balance %s)\n", snap.Result.PrimaryShare, snap.PrimaryBalance)
	fmt.Fprintf(&b, "- Secondary share: %s\n", snap.Result.SecondaryShare)
	if len(snap.InFlight) > 0 {
		fmt.Fprintf(&b, "- In flight: %v\n", snap.InFlight)
	}

	fmt.Fprintf(&b, "\n## Totals\n")
	fmt.Fprintf(&b, "- Minted: %s\n", snap.Totals.Minted)
	fmt.Fprintf(&b, "- Bridged: %s\n", snap.Totals.Bridged)
	fmt.Fprintf(&b, "- Burned: %s\n", snap.Totals.Burned)
	fmt.Fprintf(&b, "- Paid out: $%s\n", snap.Totals.FiatPaidOut.StringFixed(2))

	fmt.Fprintf(&b, "\n## Devices\n")
	if snap.DeviceID != "" {
		fmt.Fprintf(&b, "- Metering device: `%s`\n", snap.DeviceID)
	}
	ids := make([]string, 0, len(snap.DeviceEnergy))
	for id := range snap.DeviceEnergy {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "- %s: %s kWh\n", id, snap.DeviceEnergy[id])
	}
	if len(ids) == 0 {
		fmt.Fprintf(&b, "- No energy minted yet\n")
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleAssets(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	list := s.session.Assets()

	var b strings.Builder
	fmt.Fprintf(&b, "# Payout Assets (%d)\n\n", len(list))
	fmt.Fprintf(&b, "| Symbol | Name | Address pattern |\n")
	fmt.Fprintf(&b, "|--------|------|-----------------|\n")
	for _, a := range list {
		fmt.Fprintf(&b, "| %s %s | %s | `%s` |\n", a.Glyph, a.Symbol, a.DisplayName, a.Pattern())
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleLedger(ctx context.Context, _ *mcp.CallToolRequest, input ledgerInput) (*mcp.CallToolResult, any, error) {
	kind, err := ledger.ParseKind(input.Kind)
	if err != nil {
		return errResult(err.Error()), nil, nil
	}
	entries, err := s.session.Ledger(ctx, kind)
	if err != nil {
		return errResult(fmt.Sprintf("failed to read ledger: %v", err)), nil, nil
	}
	if input.Limit > 0 && len(entries) > input.Limit {
		entries = entries[:input.Limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger (%d)\n\n", len(entries))

	if len(entries) == 0 {
		fmt.Fprintf(&b, "No entries yet.\n")
	} else {
		fmt.Fprintf(&b, "| Time | Kind | Amount | Asset | Description |\n")
		fmt.Fprintf(&b, "|------|------|--------|-------|-------------|\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				e.Timestamp.Format("15:04:05"), e.Kind, e.Amount, e.CounterAsset, e.Description)
		}
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleLoadDataset(_ context.Context, _ *mcp.CallToolRequest, input loadDatasetInput) (*mcp.CallToolResult, any, error) {
	var (
		n   int
		err error
	)
	switch {
	case input.Path != "":
		f, openErr := os.Open(input.Path)
		if openErr != nil {
			return errResult(fmt.Sprintf("cannot open dataset: %v", openErr)), nil, nil
		}
		n, err = s.session.LoadDataset(f)
		f.Close()
	case input.Content != "":
		n, err = s.session.LoadContent(input.Content)
	default:
		return errResult("content or path is required"), nil, nil
	}
	if err != nil {
		return errResult(fmt.Sprintf("load failed: %v", err)), nil, nil
	}

	res, err := s.session.Account()
	if err != nil {
		return errResult(fmt.Sprintf("loaded %d samples, accounting failed: %v", n, err)), nil, nil
	}

	text := fmt.Sprintf("# Dataset Loaded\n\n- **Samples:** %d\n- **Total energy:** %s kWh\n- **Minted:** %s\n- **Primary share:** %s\n- **Secondary share:** %s",
		n, res.TotalEnergy, res.MintedAmount, res.PrimaryShare, res.SecondaryShare)
	return textResult(text), nil, nil
}

func (s *MCPServer) handleMint(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	art, entry, err := s.session.Mint(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("mint failed: %v", err)), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Minted\n\n")
	fmt.Fprintf(&b, "- **Amount:** %s\n", entry.Amount)
	fmt.Fprintf(&b, "- **Entry:** `%s`\n", entry.ID)
	fmt.Fprintf(&b, "- **Circuit:** %s\n", art.CircuitID)
	fmt.Fprintf(&b, "- **Commitment:** `%s`\n", art.Commitment)
	if art.Attestation != nil {
		fmt.Fprintf(&b, "- **Attested by:** `%s`\n", art.Attestation.Address)
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleBridge(ctx context.Context, _ *mcp.CallToolRequest, input bridgeInput) (*mcp.CallToolResult, any, error) {
	entry, err := s.session.Bridge(ctx, input.Address)
	if err != nil {
		return errResult(fmt.Sprintf("bridge failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("# Bridged\n\n- **Amount:** %s\n- **Asset:** %s\n- **Entry:** `%s`",
		entry.Amount, entry.CounterAsset, entry.ID)), nil, nil
}

func (s *MCPServer) handleSettle(ctx context.Context, _ *mcp.CallToolRequest, input settleInput) (*mcp.CallToolResult, any, error) {
	req := settlement.Request{AssetSymbol: input.Asset, DestinationAddress: input.Address}
	if input.Amount != "" {
		amt, err := decimal.NewFromString(input.Amount)
		if err != nil {
			return errResult(fmt.Sprintf("invalid amount %q", input.Amount)), nil, nil
		}
		req.Amount = amt
	}

	receipt, err := s.session.Settle(ctx, req)
	if err != nil {
		var verr *settlement.ValidationError
		if errors.As(err, &verr) {
			return errResult(fmt.Sprintf("settlement rejected (%s): %v", verr.Reason, err)), nil, nil
		}
		return errResult(fmt.Sprintf("settle failed: %v", err)), nil, nil
	}

	return textResult(fmt.Sprintf("# Settled\n\n- **Burned:** %s\n- **Paid out:** $%s in %s\n- **Destination:** `%s`",
		receipt.Amount, receipt.FiatValue.StringFixed(2), receipt.AssetName, receipt.Destination)), nil, nil
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
