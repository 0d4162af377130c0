package match

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of one officiating session.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusFinalized  Status = "finalized"
)

var (
	ErrInvalidTransition = errors.New("invalid match status transition")
	ErrVersionConflict   = errors.New("match version conflict")
	ErrSummaryIncomplete = errors.New("match summary incomplete")
)

func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusFinalized:
		return StatusFinalized, nil
	default:
		return "", fmt.Errorf("unknown match status %q", value)
	}
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Revert is the finalized -> in_progress edge.
func CanTransition(from, to Status) bool {
	switch {
	case from == StatusScheduled && to == StatusInProgress:
		return true
	case from == StatusInProgress && to == StatusFinalized:
		return true
	case from == StatusFinalized && to == StatusInProgress:
		return true
	default:
		return false
	}
}

// Match is one fixture as seen by the officiating session.
type Match struct {
	ID          string
	LeagueID    string
	LocalTeamID string
	AwayTeamID  string
	KickoffAt   time.Time
	Venue       string
	Status      Status
	LocalScore  *int
	AwayScore   *int
	Version     int64
	StartedAt   *time.Time
	FinalizedAt *time.Time
	UpdatedAt   time.Time
}

func (m Match) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("match id is required")
	}
	if strings.TrimSpace(m.LocalTeamID) == "" || strings.TrimSpace(m.AwayTeamID) == "" {
		return fmt.Errorf("match teams are required")
	}
	if m.LocalTeamID == m.AwayTeamID {
		return fmt.Errorf("match teams must differ")
	}
	if _, err := ParseStatus(string(m.Status)); err != nil {
		return err
	}
	return nil
}

// HasTeam reports whether teamID is one of the two competing sides.
func (m Match) HasTeam(teamID string) bool {
	return teamID != "" && (teamID == m.LocalTeamID || teamID == m.AwayTeamID)
}

// Opponent returns the other side, or "" when teamID is not competing.
func (m Match) Opponent(teamID string) string {
	switch teamID {
	case m.LocalTeamID:
		return m.AwayTeamID
	case m.AwayTeamID:
		return m.LocalTeamID
	default:
		return ""
	}
}

type Score struct {
	Local int
	Away  int
}

// Summary is the closing record written once per finalize.
type Summary struct {
	MatchID               string
	LocalScore            int
	AwayScore             int
	LocalAmount           decimal.Decimal
	AwayAmount            decimal.Decimal
	Observations          string
	ArbitratorName        string
	LocalCaptainSignature string
	AwayCaptainSignature  string
	RecordedBy            string
	CreatedAt             time.Time
}

// Validate only checks presence; the fields are operator-entered business data.
func (s Summary) Validate() error {
	if strings.TrimSpace(s.MatchID) == "" {
		return fmt.Errorf("%w: match id is required", ErrSummaryIncomplete)
	}
	if strings.TrimSpace(s.ArbitratorName) == "" {
		return fmt.Errorf("%w: arbitrator name is required", ErrSummaryIncomplete)
	}
	if strings.TrimSpace(s.LocalCaptainSignature) == "" || strings.TrimSpace(s.AwayCaptainSignature) == "" {
		return fmt.Errorf("%w: both captain signatures are required", ErrSummaryIncomplete)
	}
	if s.LocalAmount.IsNegative() || s.AwayAmount.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrSummaryIncomplete)
	}
	return nil
}
