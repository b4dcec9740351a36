package ledgerpresenter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daehyun-lab/potledger/internal/msgcat"
	"github.com/daehyun-lab/potledger/pkg/ledgerdto"
)

type staticPrefix string

func (p staticPrefix) Prefix() string { return string(p) }

func newTestFormatter(t *testing.T, prefix string) *Formatter {
	t.Helper()
	c, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	return NewFormatter(staticPrefix(prefix), c)
}

func TestPotPreview(t *testing.T) {
	f := newTestFormatter(t, "!")
	got := f.PotPreview(&ledgerdto.PotBreakdown{
		Pots: []ledgerdto.PotView{
			{Index: 0, Amount: 90, Eligible: []int{2, 1}},
			{Index: 1, Amount: 70, Eligible: []int{2}},
		},
		Refunds: map[int]int64{3: 50},
		Total:   160,
	})
	for _, want := range []string{"Main Pot: 90", "Side Pot 1: 70", "seats 1, 2", "Refund to Seat 3: 50", "Total: 160", "!poker showdown"} {
		if !strings.Contains(got, want) {
			t.Fatalf("preview missing %q:\n%s", want, got)
		}
	}
}

func TestShowdownReplayed(t *testing.T) {
	f := newTestFormatter(t, "!")
	got := f.Showdown(&ledgerdto.ShowdownSummary{
		HandID:   7,
		TotalPot: 160,
		Deltas:   map[int]int64{1: 90, 2: 70},
		Replayed: true,
	})
	if !strings.Contains(got, "already recorded") {
		t.Fatalf("replay marker missing:\n%s", got)
	}
	if !strings.Contains(got, "seat 1 +90 / seat 2 +70") {
		t.Fatalf("payout ordering wrong:\n%s", got)
	}
}

func TestEndSummary(t *testing.T) {
	f := newTestFormatter(t, "!")
	start := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	got := f.End(&ledgerdto.SessionResult{
		BuyIn:       200,
		CashOut:     350,
		Net:         150,
		HandsPlayed: 12,
		Bankroll:    150,
		StartedAt:   start,
		EndedAt:     start.Add(2 * time.Hour),
	})
	for _, want := range []string{"Session closed", "Buy-in: 200", "Cash-out: 350", "Net: +150", "Duration: 2h0m0s", "Bankroll: +150"} {
		if !strings.Contains(got, want) {
			t.Fatalf("end summary missing %q:\n%s", want, got)
		}
	}
}

func TestHistoryUsesSeeMorePadding(t *testing.T) {
	f := newTestFormatter(t, "!")
	got := f.History([]*ledgerdto.Session{{ID: 1, Net: -50, BuyIn: 100, CashOut: 50, HandsPlayed: 3, GameType: "NLHE", Stakes: "1/2"}})
	if !strings.HasPrefix(got, historyInstruction) {
		t.Fatalf("history should open with the instruction line:\n%s", got)
	}
	if !strings.Contains(got, "\u200b") {
		t.Fatal("history should carry see-more padding")
	}
	if !strings.Contains(got, "❌ down") {
		t.Fatalf("net badge missing:\n%s", got)
	}
}

func TestRebuyRendersThroughCatalog(t *testing.T) {
	dir := t.TempDir()
	override := "ledger:\n  session:\n    rebuy: \"topped up {{.Amount}} for a total of {{.BuyIn}}\"\n"
	if err := os.WriteFile(filepath.Join(dir, "10-local.yaml"), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := msgcat.New(dir)
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	f := NewFormatter(staticPrefix("!"), c)
	got := f.Rebuy(&ledgerdto.SessionState{BuyIn: 250}, 150)
	if got != "topped up 150 for a total of 250" {
		t.Fatalf("catalog override not applied: %q", got)
	}
}

func TestBankrollRendersThroughCatalog(t *testing.T) {
	f := newTestFormatter(t, "!")
	got := f.Bankroll(3, 150)
	if !strings.Contains(got, "across 3 sessions") || !strings.Contains(got, "+150") {
		t.Fatalf("bankroll summary wrong: %q", got)
	}
}

func TestFormatterWithoutCatalogFallsBack(t *testing.T) {
	f := NewFormatter(staticPrefix("!"), nil)
	got := f.Rebuy(&ledgerdto.SessionState{BuyIn: 250}, 150)
	if !strings.Contains(got, "Total buy-in is now 250") {
		t.Fatalf("fallback wording missing: %q", got)
	}
}

func TestPotLabel(t *testing.T) {
	if got := PotLabel(0); got != "Main Pot" {
		t.Fatalf("PotLabel(0) = %q", got)
	}
	if got := PotLabel(2); got != "Side Pot 2" {
		t.Fatalf("PotLabel(2) = %q", got)
	}
}
