package gatefast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket/wsjson"
)

// Egress abstracts pushing messages to the table over HTTP or WebSocket.
type Egress interface {
	SendText(ctx context.Context, table, message string) error
	SendResult(ctx context.Context, table string, result any) error
}

type transportMode string

const (
	transportHTTP transportMode = "http"
	transportWS   transportMode = "ws"
	transportAuto transportMode = "auto"
)

// NewEgress creates an Egress based on mode. When mode is auto, WS is preferred
// while connected; on WS failure, it falls back to HTTP once.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch transportMode(mode) {
	case transportWS:
		return &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
	case transportAuto:
		return &autoEgress{ws: &wsEgress{ws: ws, dryrun: dryrun, logger: logger}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, table, message string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendText(ctx, table, message)
}

func (h *httpEgress) SendResult(ctx context.Context, table string, result any) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendResult(ctx, table, result)
}

// wsEgress writes NotifyRequest frames over the feed connection.
type wsEgress struct {
	ws     *WebSocket
	dryrun bool
	logger *zap.Logger
}

func (w *wsEgress) SendText(ctx context.Context, table, message string) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", "text"), zap.String("table", table))
		return nil
	}
	return w.writeJSON(ctx, &NotifyRequest{Type: "text", Table: table, Data: message})
}

func (w *wsEgress) SendResult(ctx context.Context, table string, result any) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", "result"), zap.String("table", table))
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return w.writeJSON(ctx, &NotifyRequest{Type: "result", Table: table, Data: string(raw)})
}

func (w *wsEgress) writeJSON(ctx context.Context, v any) error {
	if w.ws.conn == nil || w.ws.State() != WSStateConnected {
		return errors.New("ws not connected")
	}
	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	// wsjson.Write is not concurrency-safe across goroutines; call sites push
	// one message at a time.
	return wsjson.Write(dctx, w.ws.conn, v)
}

// autoEgress prefers WS if available, with single fallback to HTTP.
type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, table, message string) error {
	if a.ws != nil && a.ws.ws != nil && a.ws.ws.State() == WSStateConnected {
		if err := a.ws.SendText(ctx, table, message); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("table", table))
	}
	return a.http.SendText(ctx, table, message)
}

func (a *autoEgress) SendResult(ctx context.Context, table string, result any) error {
	if a.ws != nil && a.ws.ws != nil && a.ws.ws.State() == WSStateConnected {
		if err := a.ws.SendResult(ctx, table, result); err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "result"), zap.String("table", table))
	}
	return a.http.SendResult(ctx, table, result)
}
