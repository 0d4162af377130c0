package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Kind string

const (
	KindGoal         Kind = "goal"
	KindSanction     Kind = "sanction"
	KindSubstitution Kind = "substitution"
)

const MaxMinute = 130

// Payload is the closed set of event variants. Only this package implements it.
type Payload interface {
	Kind() Kind
	sealed()
}

type Goal struct {
	IsOwnGoal bool
}

func (Goal) Kind() Kind { return KindGoal }
func (Goal) sealed()    {}

type SanctionType string

const (
	SanctionYellow          SanctionType = "yellow"
	SanctionStraightRed     SanctionType = "straight_red"
	SanctionSecondYellowRed SanctionType = "second_yellow_red"
)

func ParseSanctionType(value string) (SanctionType, error) {
	switch SanctionType(strings.ToLower(strings.TrimSpace(value))) {
	case SanctionYellow:
		return SanctionYellow, nil
	case SanctionStraightRed:
		return SanctionStraightRed, nil
	case SanctionSecondYellowRed:
		return SanctionSecondYellowRed, nil
	default:
		return "", fmt.Errorf("unknown sanction type %q", value)
	}
}

// IsRed reports whether the sanction sends the player off.
func (t SanctionType) IsRed() bool {
	return t == SanctionStraightRed || t == SanctionSecondYellowRed
}

type Sanction struct {
	Type SanctionType
}

func (Sanction) Kind() Kind { return KindSanction }
func (Sanction) sealed()    {}

// Substitution is recorded against the outgoing player; Event.PlayerID equals PlayerOutID.
type Substitution struct {
	PlayerOutID string
	PlayerInID  string
}

func (Substitution) Kind() Kind { return KindSubstitution }
func (Substitution) sealed()    {}

// Event is one immutable ledger entry. Sequence is assigned on append and breaks
// OccurredAt ties so replay order is total.
type Event struct {
	ID         string
	MatchID    string
	PlayerID   string
	TeamID     string
	OccurredAt time.Time
	Minute     *int
	Sequence   int64
	Payload    Payload
}

func (e Event) Kind() Kind {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Kind()
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(e.MatchID) == "" {
		return fmt.Errorf("event match id is required")
	}
	if strings.TrimSpace(e.PlayerID) == "" {
		return fmt.Errorf("event player id is required")
	}
	if e.Minute != nil && (*e.Minute < 0 || *e.Minute > MaxMinute) {
		return fmt.Errorf("event minute must be between 0 and %d", MaxMinute)
	}

	switch p := e.Payload.(type) {
	case Goal:
	case Sanction:
		if _, err := ParseSanctionType(string(p.Type)); err != nil {
			return err
		}
	case Substitution:
		if p.PlayerOutID == "" || p.PlayerInID == "" {
			return fmt.Errorf("substitution requires both players")
		}
		if p.PlayerOutID == p.PlayerInID {
			return fmt.Errorf("substitution players must differ")
		}
		if p.PlayerOutID != e.PlayerID {
			return fmt.Errorf("substitution must be recorded against the outgoing player")
		}
	case nil:
		return fmt.Errorf("event payload is required")
	default:
		return fmt.Errorf("unsupported event payload %T", p)
	}

	return nil
}

// Sort orders events the way the ledger replays them.
func Sort(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.Before(events[j].OccurredAt)
		}
		return events[i].Sequence < events[j].Sequence
	})
}
