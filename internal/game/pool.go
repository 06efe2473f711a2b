package game

import "github.com/shopspring/decimal"

// PrizePool accumulates the stakes of one round. It is not safe for
// concurrent use; Session serializes access.
type PrizePool struct {
	carry         decimal.Decimal
	contributions decimal.Decimal

	settled   bool
	winners   int
	perWinner decimal.Decimal
}

// NewPrizePool returns a pool whose starting balance is carry (an unwon pool
// rolled over from the previous round, or zero).
func NewPrizePool(carry decimal.Decimal) *PrizePool {
	return &PrizePool{carry: carry}
}

// Add records a stake. Stakes are rejected once the pool is settled.
func (p *PrizePool) Add(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeStake
	}
	if p.settled {
		return ErrAlreadyResolved
	}
	p.contributions = p.contributions.Add(amount)
	return nil
}

func (p *PrizePool) Total() decimal.Decimal         { return p.carry.Add(p.contributions) }
func (p *PrizePool) Carry() decimal.Decimal         { return p.carry }
func (p *PrizePool) Contributions() decimal.Decimal { return p.contributions }
func (p *PrizePool) Settled() bool                  { return p.settled }
func (p *PrizePool) PerWinner() decimal.Decimal     { return p.perWinner }

// Settle splits the total equally across winners and returns the per-winner
// amount, zero when there are no winners. Later calls return the first
// result.
func (p *PrizePool) Settle(winners []Participant) decimal.Decimal {
	if p.settled {
		return p.perWinner
	}
	p.settled = true
	p.winners = len(winners)
	if p.winners > 0 {
		p.perWinner = p.Total().Div(decimal.NewFromInt(int64(p.winners)))
	}
	return p.perWinner
}

// Unclaimed is the amount left without a winner after settlement. It is the
// candidate rollover for the next round.
func (p *PrizePool) Unclaimed() decimal.Decimal {
	if !p.settled || p.winners > 0 {
		return decimal.Zero
	}
	return p.Total()
}
