package ledgerpresenter

import (
	"testing"

	"github.com/daehyun-lab/potledger/pkg/ledgerdto"
)

func TestPresenterTextSkipsBlank(t *testing.T) {
	sent := 0
	p := NewPresenter(func(table, message string) error {
		sent++
		return nil
	}, nil)

	if err := p.Text("t", "   \n"); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if sent != 0 {
		t.Fatal("blank message must not be sent")
	}
	if err := p.Text("t", "hello"); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 send, got %d", sent)
	}
}

func TestPresenterResult(t *testing.T) {
	var gotTable string
	var gotResult any
	p := NewPresenter(nil, func(table string, result any) error {
		gotTable = table
		gotResult = result
		return nil
	})

	dto := &ledgerdto.ShowdownSummary{HandID: 7, TotalPot: 160}
	if err := p.Result("friday-game", dto); err != nil {
		t.Fatalf("Result: %v", err)
	}
	if gotTable != "friday-game" {
		t.Fatalf("table not forwarded: %q", gotTable)
	}
	if summary, ok := gotResult.(*ledgerdto.ShowdownSummary); !ok || summary.HandID != 7 {
		t.Fatalf("result not forwarded intact: %#v", gotResult)
	}

	// A nil result is dropped, not forwarded.
	gotResult = nil
	if err := p.Result("friday-game", nil); err != nil {
		t.Fatalf("Result(nil): %v", err)
	}
	if gotResult != nil {
		t.Fatal("nil result must not be forwarded")
	}
}
