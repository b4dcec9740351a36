package ledgerpresenter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/daehyun-lab/potledger/internal/msgcat"
	"github.com/daehyun-lab/potledger/internal/util"
	"github.com/daehyun-lab/potledger/pkg/ledgerdto"
)

const (
	historyInstruction = "🃏 Recent sessions"
	helpInstruction    = "🃏 Ledger commands"
	profileInstruction = "🃏 Player profile"

	defaultStakesLabel = "unset stakes"
	shortTimeLayout    = "2006-01-02 15:04"
)

// PrefixProvider exposes the command prefix that table messages should use.
type PrefixProvider interface {
	Prefix() string
}

// Formatter renders ledger DTOs into messenger-friendly text blocks. Message
// texts come from the catalog so operators can override wording per deploy.
type Formatter struct {
	prefixProvider PrefixProvider
	catalog        *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, catalog *msgcat.Catalog) *Formatter {
	return &Formatter{prefixProvider: provider, catalog: catalog}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

// message renders a catalog key, falling back to the built-in wording when the
// catalog is absent or the key fails to render.
func (f *Formatter) message(key string, data map[string]any, fallback string) string {
	if f == nil || f.catalog == nil {
		return fallback
	}
	text, err := f.catalog.Render(key, data)
	if err != nil {
		return fallback
	}
	return text
}

func (f *Formatter) Start(state *ledgerdto.SessionState, active bool) string {
	if state == nil {
		return fmt.Sprintf("Could not open a session. Try `%spoker start <buy-in>` again.", f.Prefix())
	}

	var sb strings.Builder
	if active {
		sb.WriteString(f.message("ledger.session.already_active", nil, "🃏 A session is already running."))
	} else {
		sb.WriteString(f.message("ledger.session.started", nil, "🃏 Session opened."))
	}
	sb.WriteByte('\n')
	sb.WriteString(fmt.Sprintf("• Game: %s %s\n", state.GameType, formatStakes(state.Stakes)))
	sb.WriteString(fmt.Sprintf("• Buy-in: %s\n", formatChips(state.BuyIn)))
	if active {
		sb.WriteString(fmt.Sprintf("• Started: %s\n", formatShortTime(state.StartedAt)))
		sb.WriteString(fmt.Sprintf("• Hands recorded: %d\n", state.HandsPlayed))
	}
	if info := formatProfileSummary(state.Profile); info != "" {
		sb.WriteString(info)
	}
	prefix := f.Prefix()
	sb.WriteString(fmt.Sprintf("\nRecord a hand: `%spoker showdown`.\nRebuy: `%spoker rebuy <amount>`.\nClose out: `%spoker end <cash-out>`.", prefix, prefix, prefix))
	return sb.String()
}

func (f *Formatter) Rebuy(state *ledgerdto.SessionState, amount int64) string {
	if state == nil {
		return f.NoSession()
	}
	return f.message("ledger.session.rebuy",
		map[string]any{"Amount": formatChips(amount), "BuyIn": formatChips(state.BuyIn)},
		fmt.Sprintf("🪙 Added %s. Total buy-in is now %s.", formatChips(amount), formatChips(state.BuyIn)))
}

func (f *Formatter) Status(state *ledgerdto.SessionState) string {
	if state == nil {
		return f.NoSession()
	}
	var sb strings.Builder
	sb.WriteString("🃏 Session status\n")
	sb.WriteString(fmt.Sprintf("• Game: %s %s\n", state.GameType, formatStakes(state.Stakes)))
	sb.WriteString(fmt.Sprintf("• Buy-in: %s\n", formatChips(state.BuyIn)))
	sb.WriteString(fmt.Sprintf("• Hands recorded: %d\n", state.HandsPlayed))
	sb.WriteString(fmt.Sprintf("• Running delta: %s\n", formatSignedChips(state.ChipDelta)))
	sb.WriteString(fmt.Sprintf("• Started: %s\n", formatShortTime(state.StartedAt)))
	if info := formatProfileSummary(state.Profile); info != "" {
		sb.WriteString(info)
	}
	prefix := f.Prefix()
	sb.WriteString(fmt.Sprintf("\nClose out with `%spoker end <cash-out>`.", prefix))
	return sb.String()
}

// PotPreview lists the built pot layers so winners can be collected per pot.
func (f *Formatter) PotPreview(breakdown *ledgerdto.PotBreakdown) string {
	if breakdown == nil || len(breakdown.Pots) == 0 {
		return "No pot could be built from those seats."
	}
	var sb strings.Builder
	sb.WriteString("💰 Pot breakdown\n")
	for _, p := range breakdown.Pots {
		sb.WriteString("• " + f.potLine(p.Index, p.Amount, p.Eligible) + "\n")
	}
	f.appendRefundLines(&sb, breakdown.Refunds)
	sb.WriteString(fmt.Sprintf("• Total: %s\n", formatChips(breakdown.Total)))
	sb.WriteString(fmt.Sprintf("\nSettle with `%spoker showdown` once winners are picked.", f.Prefix()))
	return sb.String()
}

func (f *Formatter) Showdown(summary *ledgerdto.ShowdownSummary) string {
	if summary == nil {
		return "The hand could not be settled."
	}
	var sb strings.Builder
	if summary.Replayed {
		sb.WriteString(f.message("ledger.showdown.replayed", nil, "♻️ This hand was already recorded; showing the stored result."))
	} else {
		sb.WriteString(f.message("ledger.showdown.recorded", nil, "✅ Hand settled."))
	}
	sb.WriteByte('\n')
	for _, p := range summary.Pots {
		sb.WriteString("• " + f.potLine(p.Index, p.Amount, p.Eligible) + "\n")
	}
	f.appendRefundLines(&sb, summary.Refunds)
	if len(summary.Deltas) > 0 {
		sb.WriteString("• Payouts: ")
		sb.WriteString(formatDeltaList(summary.Deltas))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("• Total pot: %s\n", formatChips(summary.TotalPot)))
	if state := summary.State; state != nil {
		sb.WriteString(fmt.Sprintf("• Session delta: %s over %d hands\n", formatSignedChips(state.ChipDelta), state.HandsPlayed))
	}
	if summary.HandID > 0 {
		sb.WriteString(fmt.Sprintf("Hand ID: #%d\n", summary.HandID))
	}
	return sb.String()
}

func (f *Formatter) End(result *ledgerdto.SessionResult) string {
	if result == nil {
		return f.NoSession()
	}
	var sb strings.Builder
	sb.WriteString(f.message("ledger.session.ended", nil, "🧾 Session closed."))
	sb.WriteByte('\n')
	sb.WriteString(fmt.Sprintf("• Buy-in: %s\n", formatChips(result.BuyIn)))
	sb.WriteString(fmt.Sprintf("• Cash-out: %s\n", formatChips(result.CashOut)))
	sb.WriteString(fmt.Sprintf("• Net: %s\n", formatSignedChips(result.Net)))
	sb.WriteString(fmt.Sprintf("• Hands recorded: %d\n", result.HandsPlayed))
	if d := result.EndedAt.Sub(result.StartedAt); d > 0 {
		sb.WriteString(fmt.Sprintf("• Duration: %s\n", formatSessionDuration(d)))
	}
	sb.WriteString(fmt.Sprintf("• Bankroll: %s\n", formatSignedChips(result.Bankroll)))
	if info := formatProfileSummary(result.Profile); info != "" {
		sb.WriteString(info)
	}
	return sb.String()
}

func (f *Formatter) History(sessions []*ledgerdto.Session) string {
	if len(sessions) == 0 {
		return fmt.Sprintf("No settled sessions yet. Start one with `%spoker start <buy-in>`.", f.Prefix())
	}
	var sb strings.Builder
	sb.WriteString(historyInstruction)
	sb.WriteByte('\n')
	for _, s := range sessions {
		sb.WriteString(fmt.Sprintf("• #%d %s %s — %s %s (hands: %d)\n",
			s.ID, formatNetBadge(s.Net), formatShortTime(s.EndedAt), s.GameType, formatStakes(s.Stakes), s.HandsPlayed))
		sb.WriteString(fmt.Sprintf("  buy-in %s / cash-out %s / net %s\n", formatChips(s.BuyIn), formatChips(s.CashOut), formatSignedChips(s.Net)))
	}
	sb.WriteString(fmt.Sprintf("\nSee a session's hands with `%spoker hands <session>`.", f.Prefix()))
	return util.ApplySeeMorePadding(util.StripLeadingHeader(sb.String(), historyInstruction), historyInstruction)
}

func (f *Formatter) Hands(hands []*ledgerdto.HandRecord) string {
	if len(hands) == 0 {
		return "No hands recorded for that session."
	}
	var sb strings.Builder
	sb.WriteString("🃏 Recorded hands\n")
	for _, h := range hands {
		sb.WriteString(fmt.Sprintf("• #%d %s — pot %s (%d pots)\n", h.ID, formatShortTime(h.PlayedAt), formatChips(h.TotalPot), len(h.PotAmounts)))
	}
	sb.WriteString(fmt.Sprintf("\nDetails: `%spoker hand <ID>`.", f.Prefix()))
	return sb.String()
}

func (f *Formatter) Hand(hand *ledgerdto.HandRecord) string {
	if hand == nil {
		return "That hand record could not be found."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🃏 Hand #%d\n", hand.ID))
	if hand.Street != "" {
		sb.WriteString(fmt.Sprintf("• Street: %s\n", hand.Street))
	}
	if len(hand.Board) > 0 {
		sb.WriteString(fmt.Sprintf("• Board: %s\n", strings.Join(hand.Board, " ")))
	}
	for i, amount := range hand.PotAmounts {
		sb.WriteString(fmt.Sprintf("• %s: %s — winners %s\n", PotLabel(i), formatChips(amount), formatSeatList(hand.Winners[i])))
	}
	if len(hand.Deltas) > 0 {
		sb.WriteString("• Payouts: ")
		sb.WriteString(formatDeltaList(hand.Deltas))
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("• Total pot: %s\n", formatChips(hand.TotalPot)))
	sb.WriteString(fmt.Sprintf("• Played: %s\n", formatShortTime(hand.PlayedAt)))
	return sb.String()
}

func (f *Formatter) Profile(profile *ledgerdto.PlayerProfile) string {
	if profile == nil {
		return "No stored ledger profile yet. Close a session first."
	}
	var sb strings.Builder
	sb.WriteString(profileInstruction)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("• Sessions: %d (%d winning / %d losing)\n", profile.SessionsPlayed, profile.WinningSessions, profile.LosingSessions))
	sb.WriteString(fmt.Sprintf("• Hands recorded: %d\n", profile.HandsRecorded))
	if profile.LastStakes != "" {
		sb.WriteString(fmt.Sprintf("• Last stakes: %s\n", profile.LastStakes))
	}
	if !profile.LastPlayedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("• Last session: %s\n", formatShortTime(profile.LastPlayedAt)))
	}
	prefix := f.Prefix()
	sb.WriteString(fmt.Sprintf("\nBankroll: `%spoker bankroll`, history: `%spoker history`.", prefix, prefix))
	return util.ApplySeeMorePadding(util.StripLeadingHeader(sb.String(), profileInstruction), profileInstruction)
}

func (f *Formatter) Bankroll(sessions int, net int64) string {
	if sessions == 0 {
		return fmt.Sprintf("No settled sessions yet. Start one with `%spoker start <buy-in>`.", f.Prefix())
	}
	return f.message("ledger.bankroll.summary",
		map[string]any{"Sessions": sessions, "Net": formatSignedChips(net)},
		fmt.Sprintf("🪙 Bankroll across %d sessions: %s.", sessions, formatSignedChips(net)))
}

func (f *Formatter) Help() string {
	content := fmt.Sprintf(`%s
• %spoker start <buy-in> [stakes]
  Open a session at this table
• %spoker rebuy <amount>
  Add chips to the running buy-in
• %spoker pots <seat:amount[,f]> ...
  Preview the pot breakdown before picking winners
• %spoker showdown
  Settle a hand and record the payouts
• %spoker end <cash-out>
  Close the session and settle the ledger
• %spoker history [n]
  Recent settled sessions
• %spoker bankroll
  Net result across all sessions
• %spoker profile
  Per-player session counters`, helpInstruction,
		f.Prefix(), f.Prefix(), f.Prefix(), f.Prefix(), f.Prefix(), f.Prefix(), f.Prefix(), f.Prefix())

	return util.ApplySeeMorePadding(util.StripLeadingHeader(content, helpInstruction), helpInstruction)
}

func (f *Formatter) NoSession() string {
	return fmt.Sprintf("No active session. Open one with `%spoker start <buy-in>`.", f.Prefix())
}

// potLine renders one pot layer with its eligible seats.
func (f *Formatter) potLine(index int, amount int64, eligible []int) string {
	data := map[string]any{"Amount": formatChips(amount), "Seats": formatSeatList(eligible)}
	fallback := fmt.Sprintf("%s: %s — seats %s", PotLabel(index), formatChips(amount), formatSeatList(eligible))
	if index == 0 {
		return f.message("ledger.pot.main", data, fallback)
	}
	data["Index"] = index
	return f.message("ledger.pot.side", data, fallback)
}

// PotLabel names a pot layer for display: the first layer is the main pot.
func PotLabel(index int) string {
	if index == 0 {
		return "Main Pot"
	}
	return fmt.Sprintf("Side Pot %d", index)
}

func formatStakes(stakes string) string {
	if strings.TrimSpace(stakes) == "" {
		return defaultStakesLabel
	}
	return stakes
}

func formatChips(amount int64) string {
	return fmt.Sprintf("%d", amount)
}

func formatSignedChips(amount int64) string {
	if amount > 0 {
		return fmt.Sprintf("+%d", amount)
	}
	return fmt.Sprintf("%d", amount)
}

func formatNetBadge(net int64) string {
	switch {
	case net > 0:
		return "✅ up"
	case net < 0:
		return "❌ down"
	default:
		return "➖ even"
	}
}

func formatSeatList(seats []int) string {
	if len(seats) == 0 {
		return "-"
	}
	sorted := append([]int(nil), seats...)
	sort.Ints(sorted)
	parts := make([]string, 0, len(sorted))
	for _, n := range sorted {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ", ")
}

func formatDeltaList(deltas map[int]int64) string {
	seats := make([]int, 0, len(deltas))
	for seat := range deltas {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	parts := make([]string, 0, len(seats))
	for _, seat := range seats {
		parts = append(parts, fmt.Sprintf("seat %d %s", seat, formatSignedChips(deltas[seat])))
	}
	return strings.Join(parts, " / ")
}

func (f *Formatter) appendRefundLines(sb *strings.Builder, refunds map[int]int64) {
	if sb == nil || len(refunds) == 0 {
		return
	}
	seats := make([]int, 0, len(refunds))
	for seat := range refunds {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		line := f.message("ledger.pot.refund",
			map[string]any{"Seat": seat, "Amount": formatChips(refunds[seat])},
			fmt.Sprintf("Refund to Seat %d: %s", seat, formatChips(refunds[seat])))
		sb.WriteString("• " + line + "\n")
	}
}

func formatShortTime(t time.Time) string {
	return util.FormatLocalTime(t, shortTimeLayout)
}

func formatSessionDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
