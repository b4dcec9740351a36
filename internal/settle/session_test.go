package settle

import (
	"errors"
	"testing"
	"time"

	"github.com/daehyun-lab/potledger/internal/domain"
)

func int64p(v int64) *int64 { return &v }

func TestCloseSession_Defaults(t *testing.T) {
	sess := domain.Session{SessionUUID: "s1", PlayerHash: "p1", BuyIn: 200}
	start := time.Date(2025, 11, 2, 19, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	out, err := CloseSession(sess, CloseInput{StartTime: start, EndTime: end})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if out.BuyIn != 200 {
		t.Errorf("buy-in should default to the session's recorded 200, got %d", out.BuyIn)
	}
	if out.CashOut != 0 {
		t.Errorf("unspecified cash-out must default to 0, got %d", out.CashOut)
	}
	if out.Net() != -200 {
		t.Errorf("expected net -200, got %d", out.Net())
	}
}

func TestCloseSession_Overrides(t *testing.T) {
	sess := domain.Session{SessionUUID: "s1", BuyIn: 200}
	start := time.Now()

	out, err := CloseSession(sess, CloseInput{
		BuyIn:     int64p(350),
		CashOut:   int64p(500),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if out.BuyIn != 350 || out.CashOut != 500 {
		t.Errorf("expected overrides 350/500, got %d/%d", out.BuyIn, out.CashOut)
	}
	if out.Net() != 150 {
		t.Errorf("expected net 150, got %d", out.Net())
	}
}

func TestCloseSession_ZeroCashOutIsNotBreakEven(t *testing.T) {
	sess := domain.Session{BuyIn: 100}
	start := time.Now()
	out, err := CloseSession(sess, CloseInput{StartTime: start, EndTime: start})
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if out.CashOut == out.BuyIn {
		t.Fatalf("cash-out must never silently default to the buy-in")
	}
}

func TestCloseSession_InvalidTimeRange(t *testing.T) {
	sess := domain.Session{BuyIn: 100}
	end := time.Date(2025, 11, 2, 19, 0, 0, 0, time.UTC)
	cases := []time.Duration{time.Nanosecond, time.Minute, 48 * time.Hour}
	for _, ahead := range cases {
		_, err := CloseSession(sess, CloseInput{StartTime: end.Add(ahead), EndTime: end})
		if !errors.Is(err, ErrInvalidTimeRange) {
			t.Errorf("start %s after end: expected ErrInvalidTimeRange, got %v", ahead, err)
		}
	}
}

func TestCloseSession_EqualTimesAllowed(t *testing.T) {
	ts := time.Now()
	if _, err := CloseSession(domain.Session{}, CloseInput{StartTime: ts, EndTime: ts}); err != nil {
		t.Fatalf("equal start/end should be valid: %v", err)
	}
}

func TestNetResult_Fold(t *testing.T) {
	settlements := []Settlement{
		{BuyIn: 100, CashOut: 250},
		{BuyIn: 200, CashOut: 0},
		{BuyIn: 150, CashOut: 150},
	}
	if got := NetResult(settlements); got != -50 {
		t.Fatalf("expected net -50, got %d", got)
	}
}

func TestNetResult_OrderIndependentAndIdempotent(t *testing.T) {
	a := []Settlement{{BuyIn: 10, CashOut: 40}, {BuyIn: 25, CashOut: 5}, {BuyIn: 7, CashOut: 7}}
	b := []Settlement{a[2], a[0], a[1]}

	first := NetResult(a)
	if NetResult(b) != first {
		t.Errorf("fold must be order-independent")
	}
	if NetResult(a) != first {
		t.Errorf("fold must be idempotent over the same input")
	}
}

func TestNetResult_Empty(t *testing.T) {
	if got := NetResult(nil); got != 0 {
		t.Fatalf("empty settlement set should net 0, got %d", got)
	}
}
