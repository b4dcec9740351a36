// Package pot partitions a showdown's chips into a main pot and side pots.
//
// Pot construction is a pure function over an immutable snapshot of seat state:
// it never consults the clock, randomness, or anything outside its arguments, so
// replaying the same seats always yields the same pots.
package pot

import (
	"errors"
	"fmt"
	"sort"

	"github.com/daehyun-lab/potledger/internal/domain"
)

var ErrEmptySeatSet = errors.New("no seats to build pots from")

// InvalidContributionError reports a malformed seat input: a negative
// contribution or a duplicate seat number.
type InvalidContributionError struct {
	SeatNumber int
	Amount     int64
	Reason     string
}

func (e *InvalidContributionError) Error() string {
	return fmt.Sprintf("invalid contribution for seat %d: %s (amount=%d)", e.SeatNumber, e.Reason, e.Amount)
}

// Pot is one contribution layer of the table's chips. Index 0 is the main pot;
// higher indexes are side pots at increasing tiers. Eligible lists the seat
// numbers allowed to contest this pot, ascending.
type Pot struct {
	Index    int
	Tier     int64
	Amount   int64
	Eligible []int
}

// HasEligible reports whether seat is in the pot's eligibility set.
func (p Pot) HasEligible(seat int) bool {
	for _, n := range p.Eligible {
		if n == seat {
			return true
		}
	}
	return false
}

// PotSet is the builder's output: the ordered pots plus any chips that were never
// callable and go straight back to their seat. Refunds arise only when a folded
// seat contributed beyond every live tier; those chips were never at risk and
// must not be treated as winnings.
type PotSet struct {
	Pots    []Pot
	Refunds map[int]int64
}

// Total returns the chips captured across all pots, refunds excluded.
func (s *PotSet) Total() int64 {
	var sum int64
	for _, p := range s.Pots {
		sum += p.Amount
	}
	return sum
}

// RefundTotal returns the chips returned outside of any pot.
func (s *PotSet) RefundTotal() int64 {
	var sum int64
	for _, amt := range s.Refunds {
		sum += amt
	}
	return sum
}

// BuildPots partitions the seats' contributions into layered pots.
//
// Every distinct positive contribution among non-folded seats defines a tier.
// The layer between two adjacent tiers collects, from every seat that reached
// into it, the slice of its contribution falling inside the layer; folded seats
// donate chips to each layer their contribution reaches but are never eligible.
// A seat is eligible for a pot when it has not folded and contributed at least
// the pot's tier.
func BuildPots(seats []domain.Seat) (*PotSet, error) {
	if len(seats) == 0 {
		return nil, ErrEmptySeatSet
	}

	seen := make(map[int]struct{}, len(seats))
	for _, s := range seats {
		if s.Number <= 0 {
			return nil, &InvalidContributionError{SeatNumber: s.Number, Amount: s.Contributed, Reason: "seat number must be positive"}
		}
		if s.Contributed < 0 {
			return nil, &InvalidContributionError{SeatNumber: s.Number, Amount: s.Contributed, Reason: "negative amount"}
		}
		if _, dup := seen[s.Number]; dup {
			return nil, &InvalidContributionError{SeatNumber: s.Number, Amount: s.Contributed, Reason: "duplicate seat number"}
		}
		seen[s.Number] = struct{}{}
	}

	tiers := activeTiers(seats)
	set := &PotSet{Refunds: make(map[int]int64)}

	prev := int64(0)
	for i, tier := range tiers {
		p := Pot{Index: i, Tier: tier}
		for _, s := range seats {
			if s.Contributed > prev {
				capped := s.Contributed
				if capped > tier {
					capped = tier
				}
				p.Amount += capped - prev
			}
			if !s.Folded && s.Contributed >= tier {
				p.Eligible = append(p.Eligible, s.Number)
			}
		}
		sort.Ints(p.Eligible)
		set.Pots = append(set.Pots, p)
		prev = tier
	}

	// Anything above the highest live tier was never callable.
	for _, s := range seats {
		if s.Contributed > prev {
			set.Refunds[s.Number] += s.Contributed - prev
		}
	}

	return set, nil
}

// activeTiers returns the distinct positive contributions of non-folded seats,
// ascending. Folded stakes never define a tier: their chips fill the live layers
// and any excess is refunded.
func activeTiers(seats []domain.Seat) []int64 {
	uniq := make(map[int64]struct{})
	for _, s := range seats {
		if !s.Folded && s.Contributed > 0 {
			uniq[s.Contributed] = struct{}{}
		}
	}
	tiers := make([]int64, 0, len(uniq))
	for t := range uniq {
		tiers = append(tiers, t)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })
	return tiers
}
