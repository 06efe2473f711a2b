// Package metrics exposes game lifecycle counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
)

const namespace = "crossguess"

type Collector struct {
	joins        *prometheus.CounterVec
	rounds       *prometheus.CounterVec
	participants *prometheus.GaugeVec
	pool         *prometheus.GaugeVec
	payouts      *prometheus.CounterVec
	orphans      *prometheus.CounterVec
}

// New registers the game collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		joins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_total",
			Help:      "Join attempts by outcome: admitted or the failure kind.",
		}, []string{"mode", "outcome"}),
		rounds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_ended_total",
			Help:      "Resolved rounds, split by whether someone won.",
		}, []string{"mode", "outcome"}),
		participants: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round_participants",
			Help:      "Participants admitted to the current round.",
		}, []string{"mode"}),
		pool: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prize_pool",
			Help:      "Prize pool of the current round.",
		}, []string{"mode"}),
		payouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Prize payouts by outcome.",
		}, []string{"mode", "outcome"}),
		orphans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_transfers_total",
			Help:      "Stakes that settled but were refused by the round afterwards.",
		}, []string{"mode"}),
	}
}

func (c *Collector) Notify(e game.Event) {
	switch e.Type {
	case game.EventRoundCreated:
		c.participants.WithLabelValues(e.Mode).Set(0)
		c.pool.WithLabelValues(e.Mode).Set(e.PrizePool.InexactFloat64())
	case game.EventPlayerJoined:
		c.joins.WithLabelValues(e.Mode, "admitted").Inc()
		c.participants.WithLabelValues(e.Mode).Set(float64(e.Participants))
		c.pool.WithLabelValues(e.Mode).Set(e.PrizePool.InexactFloat64())
	case game.EventRoundEnded:
		outcome := "unwon"
		if e.Identity != "" {
			outcome = "won"
		}
		c.rounds.WithLabelValues(e.Mode, outcome).Inc()
	case game.EventPrizePaid:
		c.payouts.WithLabelValues(e.Mode, "paid").Inc()
	case game.EventPrizeFailed:
		c.payouts.WithLabelValues(e.Mode, "failed").Inc()
	case game.EventTransferOrphaned:
		c.orphans.WithLabelValues(e.Mode).Inc()
	}
}

// JoinFailed counts a refused join. Orphaned transfers are counted from their
// event instead. Safe on a nil Collector.
func (c *Collector) JoinFailed(mode string, kind game.Kind) {
	if c == nil || kind == game.KindInconsistency {
		return
	}
	c.joins.WithLabelValues(mode, string(kind)).Inc()
}
