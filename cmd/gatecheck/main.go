package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/daehyun-lab/potledger/internal/gatefast"
)

func main() {
	baseURL := os.Getenv("GATE_BASE_URL")
	wsURL := os.Getenv("GATE_WS_URL")
	userID := os.Getenv("X_USER_ID")
	userEmail := os.Getenv("X_USER_EMAIL")
	sessionID := os.Getenv("X_SESSION_ID")

	if baseURL == "" {
		log.Fatal("GATE_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if userID != "" {
			m["X-User-Id"] = userID
		}
		if userEmail != "" {
			m["X-User-Email"] = userEmail
		}
		if sessionID != "" {
			m["X-Session-Id"] = sessionID
		}
		return m
	}

	client := gatefast.NewClient(baseURL,
		gatefast.WithHeaderProvider(headers),
		gatefast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := client.GetInfo(ctx)
	if err != nil {
		log.Printf("/info error: %v", err)
	} else {
		log.Printf("/info ok: version=%s polling=%d rate=%d endpoint=%s", info.Version, info.PollingSpeed, info.MessageRate, info.Endpoint)
	}

	if wsURL == "" {
		log.Println("GATE_WS_URL not set; skipping WS check")
		return
	}

	ws := gatefast.NewWebSocket(wsURL, 5, time.Second)
	// Propagate headers to WS handshake if needed
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gatefast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnEvent(func(ev *gatefast.Event) {
		from := "?"
		if ev.Sender != nil {
			from = *ev.Sender
		}
		fmt.Printf("WS event table=%s from=%s type=%s\n", ev.Table, from, ev.Type)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
