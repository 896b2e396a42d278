// Package contest owns the contest aggregate: the embedded participant
// collection, the prize economics, and the lifecycle status machine.
// All monetary amounts are fixed-point cents (int64).
package contest

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
)

// TimeWindow bounds the registration and trading phases.
type TimeWindow struct {
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
}

// Capacity bounds the participant count.
type Capacity struct {
	MinParticipants int `json:"min_participants"`
	MaxParticipants int `json:"max_participants"`
}

// TradingRules caps per-participant trading activity.
type TradingRules struct {
	MaxTradesPerParticipant int   `json:"max_trades_per_participant"`
	MaxOpenPositions        int   `json:"max_open_positions"`
	MaxPositionSizePercent  int64 `json:"max_position_size_percent"` // of initial virtual balance
}

// PrizeTier maps a final rank to a percentage of the prize pool.
type PrizeTier struct {
	Rank    int   `json:"rank"`
	Percent int64 `json:"percent"`
}

// PrizeDistribution is the ordered rank → percentage table.
type PrizeDistribution []PrizeTier

// Validate checks ranks are unique positive integers and percentages are
// bounded with a total of at most 100. Enforced at configuration time so
// settlement can never over-allocate the pool.
func (d PrizeDistribution) Validate() error {
	seen := make(map[int]bool, len(d))
	var total int64

	for _, tier := range d {
		if tier.Rank < 1 {
			return errs.New(errs.KindValidation, "prize tier rank must be >= 1, got %d", tier.Rank)
		}
		if seen[tier.Rank] {
			return errs.New(errs.KindValidation, "duplicate prize tier for rank %d", tier.Rank)
		}
		seen[tier.Rank] = true

		if tier.Percent <= 0 || tier.Percent > 100 {
			return errs.New(errs.KindValidation, "prize percentage out of range for rank %d: %d", tier.Rank, tier.Percent)
		}
		total += tier.Percent
	}

	if total > 100 {
		return errs.New(errs.KindValidation, "prize percentages sum to %d, must be <= 100", total)
	}

	return nil
}

// Sorted returns the tiers ordered by rank ascending.
func (d PrizeDistribution) Sorted() PrizeDistribution {
	out := make(PrizeDistribution, len(d))
	copy(out, d)
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// PercentForRank returns the configured percentage for a rank, or 0.
func (d PrizeDistribution) PercentForRank(rank int) int64 {
	for _, tier := range d {
		if tier.Rank == rank {
			return tier.Percent
		}
	}
	return 0
}

// Financials aggregates the settled money flows. TotalPrizePaid is
// write-once: set by the settlement coordinator, guarded by SettledAt.
type Financials struct {
	TotalEntryFees  int64      `json:"total_entry_fees"`
	TotalPrizePaid  int64      `json:"total_prize_paid"`
	PlatformRevenue int64      `json:"platform_revenue"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
}

// Recorded reports whether the write-once financials have been set.
func (f Financials) Recorded() bool {
	return f.SettledAt != nil
}

// Contest is the aggregate root. Participants are embedded and owned
// exclusively by the contest; all mutation goes through the engine's
// per-contest read-modify-write cycle guarded by Version.
type Contest struct {
	ID                 uuid.UUID         `json:"id"`
	Name               string            `json:"name"`
	Window             TimeWindow        `json:"window"`
	Capacity           Capacity          `json:"capacity"`
	EntryFee           int64             `json:"entry_fee"`
	PrizePool          int64             `json:"prize_pool"`
	PrizeDistribution  PrizeDistribution `json:"prize_distribution"`
	PlatformFeePercent int64             `json:"platform_fee_percent"`
	Rules              TradingRules      `json:"rules"`
	Status             Status            `json:"status"`
	VirtualMoneyAmount int64             `json:"virtual_money_amount"`
	Financials         Financials        `json:"financials"`
	Participants       []*Participant    `json:"participants"`

	// Version implements optimistic concurrency: the store rejects updates
	// whose version does not match the stored row.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mega-contest threshold for the top virtual-balance tier.
const megaContestThreshold = 500

// DefaultVirtualMoney returns the initial virtual balance granted to
// every participant, tiered by contest capacity.
func DefaultVirtualMoney(maxParticipants int) int64 {
	switch {
	case maxParticipants >= megaContestThreshold:
		return 20_000_000 // $200,000
	case maxParticipants >= 100:
		return 10_000_000 // $100,000
	case maxParticipants > 2:
		return 5_000_000 // $50,000
	default:
		return 1_000_000 // $10,000 head-to-head
	}
}

// Validate checks the configuration invariants enforced at creation time.
func (c *Contest) Validate() error {
	if c.Name == "" {
		return errs.New(errs.KindValidation, "contest name is required")
	}
	if c.Capacity.MaxParticipants < 2 {
		return errs.New(errs.KindValidation, "max participants must be >= 2, got %d", c.Capacity.MaxParticipants)
	}
	if c.Capacity.MinParticipants < 0 || c.Capacity.MinParticipants > c.Capacity.MaxParticipants {
		return errs.New(errs.KindValidation, "min participants %d out of range", c.Capacity.MinParticipants)
	}
	if c.EntryFee < 0 || c.PrizePool < 0 {
		return errs.New(errs.KindValidation, "entry fee and prize pool must be non-negative")
	}
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent > 100 {
		return errs.New(errs.KindValidation, "platform fee percentage out of range: %d", c.PlatformFeePercent)
	}
	if !c.Window.End.After(c.Window.Start) {
		return errs.New(errs.KindValidation, "contest end must be after start")
	}
	if c.Rules.MaxPositionSizePercent <= 0 || c.Rules.MaxPositionSizePercent > 100 {
		return errs.New(errs.KindValidation, "max position size percentage out of range: %d", c.Rules.MaxPositionSizePercent)
	}
	if err := c.PrizeDistribution.Validate(); err != nil {
		return err
	}
	return nil
}

// IsHeadToHead reports whether the contest uses the simplified
// winner-takes-all projection regardless of the distribution table.
func (c *Contest) IsHeadToHead() bool {
	return c.Capacity.MaxParticipants == 2
}

// IsFull reports whether registration capacity is exhausted.
func (c *Contest) IsFull() bool {
	return len(c.Participants) >= c.Capacity.MaxParticipants
}

// Participant returns the embedded participant for a user, or nil.
func (c *Contest) Participant(userID uuid.UUID) *Participant {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// AddParticipant registers a user with the contest's initial virtual
// balance. Join preconditions (status, capacity, duplicates) are checked
// by the engine before calling.
func (c *Contest) AddParticipant(userID uuid.UUID, now time.Time) *Participant {
	p := &Participant{
		UserID:         userID,
		JoinedAt:       now,
		VirtualBalance: c.VirtualMoneyAmount,
	}
	c.Participants = append(c.Participants, p)
	return p
}

// RemoveParticipant unregisters a user. Returns false if absent.
func (c *Contest) RemoveParticipant(userID uuid.UUID) bool {
	for i, p := range c.Participants {
		if p.UserID == userID {
			c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
			return true
		}
	}
	return false
}
