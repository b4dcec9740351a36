package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/daehyun-lab/potledger/internal/adapter/ledgerpresenter"
	appcfg "github.com/daehyun-lab/potledger/internal/config"
	"github.com/daehyun-lab/potledger/internal/gatefast"
	"github.com/daehyun-lab/potledger/internal/ledgerbuilder"
	"github.com/daehyun-lab/potledger/internal/msgcat"
	"github.com/daehyun-lab/potledger/internal/obslog"
	"github.com/daehyun-lab/potledger/internal/pot"
	svcledger "github.com/daehyun-lab/potledger/internal/service/ledger"
	"github.com/daehyun-lab/potledger/internal/settle"
	"github.com/daehyun-lab/potledger/pkg/ledgerdto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XUserEmail != "" {
			h["X-User-Email"] = cfg.XUserEmail
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}

	client := gatefast.NewClient(cfg.GateBaseURL, gatefast.WithHeaderProvider(headers))

	ws := gatefast.NewWebSocket(cfg.GateWSURL, 5, time.Second)
	// Inject WS handshake headers if required by the gateway
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gatefast.WebSocketState) {
		logger.Info("ws state", zap.String("state", string(state)))
	})

	deps, err := ledgerbuilder.New(cfg, logger)
	if err != nil {
		log.Fatalf("ledger init error: %v", err)
	}

	catalog, err := msgcat.New(strings.TrimSpace(os.Getenv("LEDGER_TEMPLATE_DIR")))
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	egress := gatefast.NewEgress(cfg.EgressMode, cfg.EgressDryrun, client, ws, logger)
	presenter := ledgerpresenter.NewPresenter(
		func(table, message string) error {
			return egress.SendText(context.Background(), table, message)
		},
		func(table string, result any) error {
			return egress.SendResult(context.Background(), table, result)
		},
	)
	formatter := ledgerpresenter.NewFormatter(prefixProvider{prefix: cfg.BotPrefix}, catalog)

	h := &eventHandler{
		ledger:    deps.Service,
		presenter: presenter,
		formatter: formatter,
		catalog:   catalog,
		logger:    logger,
	}

	ws.OnEvent(func(ev *gatefast.Event) {
		if ev == nil || strings.TrimSpace(ev.Table) == "" {
			return
		}
		// Avoid blocking the WS loop
		go h.handle(ev)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		log.Fatalf("ws connect error: %v", err)
	}
	cancel()

	if info, err := client.GetInfo(context.Background()); err == nil {
		logger.Info("gateway connected", zap.String("version", info.Version), zap.String("endpoint", info.Endpoint))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = ws.Close(context.Background())
	_ = deps.Cache.Close()
	_ = deps.DB.Close()
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }

type eventHandler struct {
	ledger    *svcledger.Service
	presenter *ledgerpresenter.Presenter
	formatter *ledgerpresenter.Formatter
	catalog   *msgcat.Catalog
	logger    *zap.Logger
}

// Payload bodies for the event types the ledger reacts to.
type startPayload struct {
	BuyIn    int64  `json:"buy_in"`
	GameType string `json:"game_type,omitempty"`
	Stakes   string `json:"stakes,omitempty"`
}

type rebuyPayload struct {
	Amount int64 `json:"amount"`
}

type endPayload struct {
	BuyIn   *int64 `json:"buy_in,omitempty"`
	CashOut *int64 `json:"cash_out,omitempty"`
}

type previewPayload struct {
	Seats []ledgerdto.SeatInput `json:"seats"`
}

type showdownPayload struct {
	HandUUID string                `json:"hand_uuid,omitempty"`
	Street   string                `json:"street,omitempty"`
	Board    []string              `json:"board,omitempty"`
	HeroSeat int                   `json:"hero_seat,omitempty"`
	Seats    []ledgerdto.SeatInput `json:"seats"`
	Winners  map[int][]int         `json:"winners"`
}

type historyPayload struct {
	Limit int `json:"limit,omitempty"`
}

type handsPayload struct {
	SessionUUID string `json:"session_uuid,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

type handPayload struct {
	ID int64 `json:"id"`
}

func (h *eventHandler) handle(ev *gatefast.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	meta := metaFromEvent(ev)

	switch ev.Type {
	case gatefast.EventSessionStart:
		h.handleStart(ctx, ev, meta)
	case gatefast.EventRebuy:
		h.handleRebuy(ctx, ev, meta)
	case gatefast.EventStatus:
		h.handleStatus(ctx, ev, meta)
	case gatefast.EventPotPreview:
		h.handlePreview(ctx, ev, meta)
	case gatefast.EventShowdown:
		h.handleShowdown(ctx, ev, meta)
	case gatefast.EventSessionEnd:
		h.handleEnd(ctx, ev, meta)
	case gatefast.EventBankroll:
		h.handleBankroll(ctx, ev, meta)
	case gatefast.EventHistory:
		h.handleHistory(ctx, ev, meta)
	case gatefast.EventHands:
		h.handleHands(ctx, ev, meta)
	case gatefast.EventHand:
		h.handleHand(ctx, ev, meta)
	case gatefast.EventProfile:
		h.handleProfile(ctx, ev, meta)
	case gatefast.EventHelp:
		h.send(ev.Table, h.formatter.Help())
	default:
		h.logger.Debug("ignoring event", zap.String("type", ev.Type))
	}
}

func (h *eventHandler) handleStart(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p startPayload
	if !h.decode(ev, &p) {
		return
	}
	state, err := h.ledger.StartSession(ctx, meta, svcledger.StartOptions{BuyIn: p.BuyIn, GameType: p.GameType, Stakes: p.Stakes})
	active := errors.Is(err, svcledger.ErrSessionInProgress)
	if err != nil && !active {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.Start(ledgerpresenter.ToDTOState(state), active))
}

func (h *eventHandler) handleRebuy(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p rebuyPayload
	if !h.decode(ev, &p) {
		return
	}
	state, err := h.ledger.AddBuyIn(ctx, meta, p.Amount)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.Rebuy(ledgerpresenter.ToDTOState(state), p.Amount))
}

func (h *eventHandler) handleStatus(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	state, err := h.ledger.Status(ctx, meta)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.Status(ledgerpresenter.ToDTOState(state)))
}

func (h *eventHandler) handlePreview(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p previewPayload
	if !h.decode(ev, &p) {
		return
	}
	set, err := h.ledger.PreviewPots(meta, ledgerpresenter.FromSeatInputs(p.Seats))
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.PotPreview(ledgerpresenter.ToDTOBreakdown(set)))
}

func (h *eventHandler) handleShowdown(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p showdownPayload
	if !h.decode(ev, &p) {
		return
	}
	summary, err := h.ledger.RecordShowdown(ctx, meta, svcledger.ShowdownInput{
		HandUUID: p.HandUUID,
		Street:   p.Street,
		Board:    p.Board,
		HeroSeat: p.HeroSeat,
		Seats:    ledgerpresenter.FromSeatInputs(p.Seats),
		Winners:  settle.Assignment(p.Winners),
	})
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	dto := ledgerpresenter.ToDTOShowdown(summary)
	h.send(ev.Table, h.formatter.Showdown(dto))
	h.pushResult(ev.Table, dto)
}

func (h *eventHandler) handleEnd(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p endPayload
	if !h.decode(ev, &p) {
		return
	}
	result, err := h.ledger.EndSession(ctx, meta, svcledger.EndInput{BuyIn: p.BuyIn, CashOut: p.CashOut})
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	dto := ledgerpresenter.ToDTOResult(result)
	h.send(ev.Table, h.formatter.End(dto))
	h.pushResult(ev.Table, dto)
}

func (h *eventHandler) handleHistory(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p historyPayload
	if !h.decode(ev, &p) {
		return
	}
	sessions, err := h.ledger.History(ctx, meta, p.Limit)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.History(ledgerpresenter.ToDTOSessions(sessions)))
}

func (h *eventHandler) handleHands(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p handsPayload
	if !h.decode(ev, &p) {
		return
	}
	sessionUUID := strings.TrimSpace(p.SessionUUID)
	if sessionUUID == "" {
		// Default to the caller's active session.
		state, err := h.ledger.Status(ctx, meta)
		if err != nil {
			h.reply(ev.Table, h.describeError(err))
			return
		}
		sessionUUID = state.SessionUUID
	}
	hands, err := h.ledger.Hands(ctx, meta, sessionUUID, p.Limit)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.Hands(ledgerpresenter.ToDTOHands(hands)))
}

func (h *eventHandler) handleHand(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	var p handPayload
	if !h.decode(ev, &p) {
		return
	}
	hand, err := h.ledger.Hand(ctx, meta, p.ID)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.Hand(ledgerpresenter.ToDTOHand(hand)))
}

func (h *eventHandler) handleProfile(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	profile, err := h.ledger.Profile(ctx, meta)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	h.send(ev.Table, h.formatter.Profile(ledgerpresenter.ToDTOProfile(profile)))
}

func (h *eventHandler) handleBankroll(ctx context.Context, ev *gatefast.Event, meta svcledger.SessionMeta) {
	net, err := h.ledger.Bankroll(ctx, meta)
	if err != nil {
		h.reply(ev.Table, h.describeError(err))
		return
	}
	sessions := 0
	if profile, perr := h.ledger.Profile(ctx, meta); perr == nil && profile != nil {
		sessions = profile.SessionsPlayed
	}
	h.send(ev.Table, h.formatter.Bankroll(sessions, net))
}

func (h *eventHandler) decode(ev *gatefast.Event, dest any) bool {
	if len(ev.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(ev.Payload, dest); err != nil {
		h.logger.Warn("bad event payload", zap.String("type", ev.Type), zap.Error(err))
		h.reply(ev.Table, h.render("ledger.error.internal", nil))
		return false
	}
	return true
}

// describeError translates engine errors into corrective table messages.
func (h *eventHandler) describeError(err error) string {
	var incomplete *settle.IncompleteAssignmentError
	if errors.As(err, &incomplete) {
		if len(incomplete.MissingPots) > 0 {
			return h.render("ledger.showdown.missing_winner", map[string]any{
				"Pot": ledgerpresenter.PotLabel(incomplete.MissingPots[0]),
			})
		}
		for _, idx := range sortedPotKeys(incomplete.Ineligible) {
			seats := incomplete.Ineligible[idx]
			if len(seats) > 0 {
				return h.render("ledger.showdown.ineligible_winner", map[string]any{
					"Seat": seats[0],
					"Pot":  ledgerpresenter.PotLabel(idx),
				})
			}
		}
	}
	var contrib *pot.InvalidContributionError
	if errors.As(err, &contrib) {
		return fmt.Sprintf("Seat %d has an invalid contribution (%d): %s.", contrib.SeatNumber, contrib.Amount, contrib.Reason)
	}
	switch {
	case errors.Is(err, pot.ErrEmptySeatSet):
		return "At least one seat with chips in is required."
	case errors.Is(err, settle.ErrInvalidTimeRange):
		return "The session end time is before its start time."
	case errors.Is(err, svcledger.ErrSessionNotFound):
		return h.render("ledger.session.none", nil)
	case errors.Is(err, svcledger.ErrInvalidAmount):
		return h.render("ledger.error.invalid_amount", nil)
	case errors.Is(err, svcledger.ErrTableNotAllowed):
		return h.render("ledger.error.table_not_allowed", nil)
	case errors.Is(err, svcledger.ErrHandNotFound):
		return "That hand record could not be found."
	case errors.Is(err, svcledger.ErrProfileNotFound):
		return "No stored ledger profile yet. Close a session first."
	}
	h.logger.Error("ledger command failed", zap.Error(err))
	return h.render("ledger.error.internal", nil)
}

func (h *eventHandler) render(key string, data map[string]any) string {
	text, err := h.catalog.Render(key, data)
	if err != nil {
		h.logger.Warn("template render failed", zap.String("key", key), zap.Error(err))
		return "Something went wrong. Please try again."
	}
	return text
}

func (h *eventHandler) send(table, message string) {
	if err := h.presenter.Text(table, message); err != nil {
		h.logger.Warn("send failed", zap.String("table", table), zap.Error(err))
	}
}

func (h *eventHandler) reply(table, message string) {
	h.send(table, message)
}

// pushResult mirrors the rendered text with a structured frame so API
// consumers on the gateway get a machine-readable record.
func (h *eventHandler) pushResult(table string, result any) {
	if err := h.presenter.Result(table, result); err != nil {
		h.logger.Warn("result push failed", zap.String("table", table), zap.Error(err))
	}
}

func metaFromEvent(ev *gatefast.Event) svcledger.SessionMeta {
	sender := ""
	if ev.Sender != nil {
		sender = strings.TrimSpace(*ev.Sender)
	}
	if sender == "" {
		sender = "player"
	}
	return svcledger.SessionMeta{
		SessionID: fmt.Sprintf("%s:%s", strings.TrimSpace(ev.Table), sender),
		Table:     ev.Table,
		Sender:    sender,
	}
}

func sortedPotKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
