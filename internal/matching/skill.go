package matching

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/forgo/courtside/api/internal/model"
)

// SkillModel maps a member's skill level to a numeric power used for team
// balancing. Implementations must be pure and total.
type SkillModel interface {
	Power(level model.SkillLevel) int
}

// DefaultPowers is the stock level to power mapping
var DefaultPowers = map[model.SkillLevel]int{
	model.SkillCasual:       50,
	model.SkillBeginner:     60,
	model.SkillIntermediate: 80,
	model.SkillAdvanced:     90,
}

// ErrNoFallbackLevel is returned when a power table has no CASUAL entry to
// fall back on for unknown levels.
var ErrNoFallbackLevel = errors.New("power table must define " + string(model.SkillCasual))

// PowerTable is a SkillModel backed by a fixed map. Unknown levels score as
// CASUAL.
type PowerTable struct {
	powers   map[model.SkillLevel]int
	fallback int
}

// NewPowerTable copies powers into a new table
func NewPowerTable(powers map[model.SkillLevel]int) (*PowerTable, error) {
	fallback, ok := powers[model.SkillCasual]
	if !ok {
		return nil, ErrNoFallbackLevel
	}
	return &PowerTable{
		powers:   maps.Clone(powers),
		fallback: fallback,
	}, nil
}

// DefaultPowerTable returns a table built from DefaultPowers
func DefaultPowerTable() *PowerTable {
	t, _ := NewPowerTable(DefaultPowers)
	return t
}

// Power implements SkillModel
func (t *PowerTable) Power(level model.SkillLevel) int {
	if p, ok := t.powers[level]; ok {
		return p
	}
	return t.fallback
}

// ParsePowers parses "LEVEL=power" pairs separated by commas, e.g.
// "CASUAL=50,BEGINNER=60". Level names are case-insensitive.
func ParsePowers(s string) (map[model.SkillLevel]int, error) {
	powers := make(map[model.SkillLevel]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid skill power %q: expected LEVEL=power", pair)
		}
		level := model.ParseSkillLevel(name)
		if level == "" {
			return nil, fmt.Errorf("invalid skill power %q: empty level", pair)
		}
		p, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid skill power %q: %w", pair, err)
		}
		if p < 0 {
			return nil, fmt.Errorf("invalid skill power %q: must not be negative", pair)
		}
		powers[level] = p
	}
	if len(powers) == 0 {
		return nil, errors.New("no skill powers defined")
	}
	return powers, nil
}
