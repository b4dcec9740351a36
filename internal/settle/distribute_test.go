package settle

import (
	"errors"
	"testing"

	"github.com/daehyun-lab/potledger/internal/domain"
	"github.com/daehyun-lab/potledger/internal/pot"
)

func mustBuild(t *testing.T, seats []domain.Seat) *pot.PotSet {
	t.Helper()
	set, err := pot.BuildPots(seats)
	if err != nil {
		t.Fatalf("BuildPots: %v", err)
	}
	return set
}

func deltaTotal(deltas map[int]int64) int64 {
	var sum int64
	for _, d := range deltas {
		sum += d
	}
	return sum
}

func TestDistribute_SingleWinner(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 50},
		{Number: 2, Contributed: 50},
		{Number: 3, Contributed: 50},
	})

	deltas, err := Distribute(set.Pots, Assignment{0: {2}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if len(deltas) != 1 || deltas[2] != 150 {
		t.Fatalf("expected {2: 150}, got %v", deltas)
	}
}

func TestDistribute_SidePots(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 30, AllIn: true},
		{Number: 2, Contributed: 100},
		{Number: 3, Contributed: 30, Folded: true},
	})

	// Side pot has a single eligible seat, so no entry is required for it.
	deltas, err := Distribute(set.Pots, Assignment{0: {1}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if deltas[1] != 90 || deltas[2] != 70 {
		t.Fatalf("expected {1: 90, 2: 70}, got %v", deltas)
	}
	if deltaTotal(deltas) != 160 {
		t.Errorf("expected 160 chips paid out, got %d", deltaTotal(deltas))
	}
}

func TestDistribute_RemainderFairness(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 2, Contributed: 25},
		{Number: 5, Contributed: 25},
		{Number: 8, Contributed: 25},
		{Number: 9, Contributed: 25},
	})
	if set.Pots[0].Amount != 100 {
		t.Fatalf("expected a pot of 100, got %d", set.Pots[0].Amount)
	}

	// 100 three ways: 34/33/33 with the extra unit going to the lowest seat.
	deltas, err := Distribute(set.Pots, Assignment{0: {8, 2, 5}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if deltas[2] != 34 || deltas[5] != 33 || deltas[8] != 33 {
		t.Errorf("expected 34/33/33 ascending by seat, got %v", deltas)
	}
	if deltaTotal(deltas) != 100 {
		t.Errorf("expected full payout of 100, got %d", deltaTotal(deltas))
	}
}

func TestDistribute_SplitPotEven(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 60},
		{Number: 2, Contributed: 60},
	})
	deltas, err := Distribute(set.Pots, Assignment{0: {1, 2}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if deltas[1] != 60 || deltas[2] != 60 {
		t.Errorf("expected an even 60/60 split, got %v", deltas)
	}
}

func TestDistribute_MissingAssignment(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 30, AllIn: true},
		{Number: 2, Contributed: 100},
		{Number: 3, Contributed: 100},
	})
	if len(set.Pots) != 2 {
		t.Fatalf("expected 2 pots, got %d", len(set.Pots))
	}

	_, err := Distribute(set.Pots, Assignment{0: {1}})
	var incomplete *IncompleteAssignmentError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteAssignmentError, got %v", err)
	}
	if len(incomplete.MissingPots) != 1 || incomplete.MissingPots[0] != 1 {
		t.Errorf("expected missing pot index 1, got %v", incomplete.MissingPots)
	}
}

func TestDistribute_IneligibleWinner(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 50},
		{Number: 2, Contributed: 50},
		{Number: 3, Contributed: 50, Folded: true},
	})

	_, err := Distribute(set.Pots, Assignment{0: {3}})
	var incomplete *IncompleteAssignmentError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteAssignmentError, got %v", err)
	}
	if seats := incomplete.Ineligible[0]; len(seats) != 1 || seats[0] != 3 {
		t.Errorf("expected seat 3 reported ineligible for pot 0, got %v", incomplete.Ineligible)
	}
}

func TestDistribute_DuplicateWinnersCollapse(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 40},
		{Number: 2, Contributed: 40},
	})
	deltas, err := Distribute(set.Pots, Assignment{0: {1, 1, 2}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if deltas[1] != 40 || deltas[2] != 40 {
		t.Errorf("duplicate winner entries must not double-pay: %v", deltas)
	}
}

func TestDistribute_Conservation(t *testing.T) {
	cases := []struct {
		seats   []domain.Seat
		winners Assignment
	}{
		{
			seats:   []domain.Seat{{Number: 1, Contributed: 15}, {Number: 2, Contributed: 15}, {Number: 3, Contributed: 7, AllIn: true}},
			winners: Assignment{0: {3}, 1: {1, 2}},
		},
		{
			seats:   []domain.Seat{{Number: 4, Contributed: 11}, {Number: 5, Contributed: 11}, {Number: 6, Contributed: 11}},
			winners: Assignment{0: {4, 5, 6}},
		},
		{
			seats:   []domain.Seat{{Number: 1, Contributed: 100}, {Number: 2, Contributed: 60, AllIn: true}, {Number: 3, Contributed: 30, Folded: true}},
			winners: Assignment{0: {2}},
		},
	}
	for i, tc := range cases {
		set := mustBuild(t, tc.seats)
		deltas, err := Distribute(set.Pots, tc.winners)
		if err != nil {
			t.Fatalf("case %d: Distribute: %v", i, err)
		}
		if got, want := deltaTotal(deltas), set.Total(); got != want {
			t.Errorf("case %d: conservation broken: paid=%d pots=%d", i, got, want)
		}
	}
}

func TestSettlePots_IncludesRefunds(t *testing.T) {
	set := mustBuild(t, []domain.Seat{
		{Number: 1, Contributed: 100},
		{Number: 2, Contributed: 100},
		{Number: 3, Contributed: 150, Folded: true},
	})
	deltas, err := SettlePots(set, Assignment{0: {1}})
	if err != nil {
		t.Fatalf("SettlePots: %v", err)
	}
	if deltas[1] != 300 {
		t.Errorf("expected seat 1 to take the 300 pot, got %d", deltas[1])
	}
	if deltas[3] != 50 {
		t.Errorf("expected seat 3's uncalled 50 back, got %d", deltas[3])
	}
	if deltaTotal(deltas) != 350 {
		t.Errorf("expected 350 chips accounted for, got %d", deltaTotal(deltas))
	}
}
