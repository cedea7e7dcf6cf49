package matching

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/forgo/courtside/api/internal/model"
)

// ErrNotEnoughCandidates is returned when fewer than four queue entries pass
// the gender filter.
var ErrNotEnoughCandidates = errors.New("not enough candidates")

// Config tunes the generator
type Config struct {
	// ScopeSize caps how many queued candidates, oldest first, are considered
	ScopeSize int
	// BalanceThreshold is the largest power difference accepted from a fresh
	// group before groups that already played are reconsidered
	BalanceThreshold int
}

// DefaultConfig holds the stock generator settings
var DefaultConfig = Config{
	ScopeSize:        8,
	BalanceThreshold: 3,
}

// partitions lists the three distinct 2v2 splits of a four-member group by
// position. Order matters for tie-breaking.
var partitions = [3][2][2]int{
	{{0, 1}, {2, 3}},
	{{0, 2}, {1, 3}},
	{{0, 3}, {1, 2}},
}

// Generator selects a balanced doubles group from a session queue. It is
// pure: it reads its inputs and never writes.
type Generator struct {
	skills SkillModel
	config Config
}

// NewGenerator creates a generator. A nil skill model uses DefaultPowerTable.
// A scope smaller than a pool or a negative threshold falls back to
// DefaultConfig.
func NewGenerator(skills SkillModel, cfg Config) *Generator {
	if skills == nil {
		skills = DefaultPowerTable()
	}
	if cfg.ScopeSize < model.PoolSize {
		cfg.ScopeSize = DefaultConfig.ScopeSize
	}
	if cfg.BalanceThreshold < 0 {
		cfg.BalanceThreshold = DefaultConfig.BalanceThreshold
	}
	return &Generator{skills: skills, config: cfg}
}

// Config returns the effective configuration
func (g *Generator) Config() Config {
	return g.config
}

// scored is one (group, partition) evaluation
type scored struct {
	combo     [model.PoolSize]int
	partition int
	diff      int
}

// Generate picks four candidates and their team split from queue, which must
// be ordered by arrival. Groups whose history key is present in history are
// only chosen when no fresh group balances within the threshold.
func (g *Generator) Generate(queue []*model.QueueCandidate, filter model.GenderFilter, history model.MatchHistory) (*model.MatchProposal, error) {
	eligible := lo.Filter(queue, func(c *model.QueueCandidate, _ int) bool {
		return filter.Allows(c.Gender)
	})
	if len(eligible) < model.PoolSize {
		return nil, fmt.Errorf("%w: %d eligible, need %d", ErrNotEnoughCandidates, len(eligible), model.PoolSize)
	}

	scope := eligible[:min(g.config.ScopeSize, len(eligible))]
	powers := lo.Map(scope, func(c *model.QueueCandidate, _ int) int {
		return g.skills.Power(c.Level)
	})

	var bestFresh, bestAll *scored
	ids := make([]string, model.PoolSize)
	for combo := range Combinations(len(scope), model.PoolSize) {
		for i, idx := range combo {
			ids[i] = scope[idx].MemberID
		}
		s := bestPartition(powers, combo)

		if bestAll == nil || s.diff < bestAll.diff {
			bestAll = &s
		}
		if !history.Contains(model.HistoryKey(ids)) {
			if bestFresh == nil || s.diff < bestFresh.diff {
				bestFresh = &s
			}
			if bestFresh.diff == 0 {
				break
			}
		}
	}

	// Ties keep the first found, so one pass equals a fresh scan followed by a
	// full rescan.
	chosen, repeat := bestFresh, false
	if chosen == nil || chosen.diff > g.config.BalanceThreshold {
		chosen = bestAll
		repeat = bestFresh == nil || bestAll != bestFresh
	}

	return g.proposal(scope, powers, chosen, repeat), nil
}

// bestPartition returns the lowest-diff split of the group at combo, first
// found on ties.
func bestPartition(powers []int, combo []int) scored {
	var s scored
	copy(s.combo[:], combo)
	for p, split := range partitions {
		a := powers[combo[split[0][0]]] + powers[combo[split[0][1]]]
		b := powers[combo[split[1][0]]] + powers[combo[split[1][1]]]
		diff := abs(a - b)
		if p == 0 || diff < s.diff {
			s.partition = p
			s.diff = diff
		}
	}
	return s
}

func (g *Generator) proposal(scope []*model.QueueCandidate, powers []int, s *scored, repeat bool) *model.MatchProposal {
	split := partitions[s.partition]
	pick := func(pos int) *model.QueueCandidate { return scope[s.combo[pos]] }
	power := func(pos int) int { return powers[s.combo[pos]] }

	p := &model.MatchProposal{
		Group:      make([]*model.QueueCandidate, 0, model.PoolSize),
		TeamA:      []*model.QueueCandidate{pick(split[0][0]), pick(split[0][1])},
		TeamB:      []*model.QueueCandidate{pick(split[1][0]), pick(split[1][1])},
		PowerA:     power(split[0][0]) + power(split[0][1]),
		PowerB:     power(split[1][0]) + power(split[1][1]),
		Difference: s.diff,
		Repeat:     repeat,
	}
	for pos := range s.combo {
		p.Group = append(p.Group, pick(pos))
	}
	return p
}

// MemberIDs returns the member ids of a proposal's group in queue order
func MemberIDs(p *model.MatchProposal) []string {
	return lo.Map(p.Group, func(c *model.QueueCandidate, _ int) string { return c.MemberID })
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
