// Package settle converts a winner assignment into concrete chip deltas and
// reconciles a session's buy-ins and cash-outs into a signed net result.
package settle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daehyun-lab/potledger/internal/pot"
)

// Assignment maps a pot index to the non-empty set of seat numbers that won it.
// It is constructed atomically by the caller once winner selection is complete;
// the engine never sees partial selection state.
type Assignment map[int][]int

// IncompleteAssignmentError reports pots that cannot be paid out: pots with no
// winner entry and winner seats that are not in their pot's eligibility set.
// The caller must re-solicit selections; the engine never guesses a winner.
type IncompleteAssignmentError struct {
	MissingPots []int
	Ineligible  map[int][]int
}

func (e *IncompleteAssignmentError) Error() string {
	var parts []string
	if len(e.MissingPots) > 0 {
		parts = append(parts, fmt.Sprintf("no winner assigned for pot(s) %v", e.MissingPots))
	}
	for _, idx := range sortedKeys(e.Ineligible) {
		parts = append(parts, fmt.Sprintf("seat(s) %v not eligible for pot %d", e.Ineligible[idx], idx))
	}
	if len(parts) == 0 {
		return "incomplete winner assignment"
	}
	return "incomplete winner assignment: " + strings.Join(parts, "; ")
}

// Distribute pays each pot out to its winners and returns the net chip delta per
// seat. Pots with exactly one eligible seat are uncontested and return to that
// seat without requiring an assignment entry.
//
// A pot's amount is split evenly among its winners; when it does not divide
// evenly the remainder is handed out one unit at a time in seat-number ascending
// order, so the full amount is always paid with no unit lost to rounding. The sum
// of the returned deltas always equals the sum of the pot amounts.
func Distribute(pots []pot.Pot, winners Assignment) (map[int]int64, error) {
	if err := validateAssignment(pots, winners); err != nil {
		return nil, err
	}

	deltas := make(map[int]int64)
	for _, p := range pots {
		recipients := winners[p.Index]
		if len(p.Eligible) == 1 {
			recipients = p.Eligible
		}
		share(deltas, p.Amount, recipients)
	}
	return deltas, nil
}

// SettlePots distributes every pot in the set and folds the builder's refunds
// into the delta map. This is the settlement the service layer applies to table
// state: contested winnings plus uncontested returns.
func SettlePots(set *pot.PotSet, winners Assignment) (map[int]int64, error) {
	deltas, err := Distribute(set.Pots, winners)
	if err != nil {
		return nil, err
	}
	for seat, amt := range set.Refunds {
		deltas[seat] += amt
	}
	return deltas, nil
}

func validateAssignment(pots []pot.Pot, winners Assignment) error {
	incomplete := &IncompleteAssignmentError{Ineligible: make(map[int][]int)}
	for _, p := range pots {
		assigned := dedupe(winners[p.Index])
		if len(p.Eligible) == 1 {
			// Uncontested layer: an entry is optional but must match the sole seat.
			for _, seat := range assigned {
				if seat != p.Eligible[0] {
					incomplete.Ineligible[p.Index] = append(incomplete.Ineligible[p.Index], seat)
				}
			}
			continue
		}
		if len(assigned) == 0 {
			incomplete.MissingPots = append(incomplete.MissingPots, p.Index)
			continue
		}
		for _, seat := range assigned {
			if !p.HasEligible(seat) {
				incomplete.Ineligible[p.Index] = append(incomplete.Ineligible[p.Index], seat)
			}
		}
	}
	if len(incomplete.MissingPots) > 0 || len(incomplete.Ineligible) > 0 {
		sort.Ints(incomplete.MissingPots)
		return incomplete
	}
	return nil
}

func share(deltas map[int]int64, amount int64, recipients []int) {
	if len(recipients) == 0 || amount <= 0 {
		return
	}
	seats := dedupe(recipients)
	sort.Ints(seats)
	n := int64(len(seats))
	base := amount / n
	rem := amount % n
	for i, seat := range seats {
		deltas[seat] += base
		if int64(i) < rem {
			deltas[seat]++
		}
	}
}

func dedupe(seats []int) []int {
	if len(seats) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(seats))
	out := make([]int, 0, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
