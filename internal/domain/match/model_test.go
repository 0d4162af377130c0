package match

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusScheduled, StatusInProgress, true},
		{StatusInProgress, StatusFinalized, true},
		{StatusFinalized, StatusInProgress, true},
		{StatusScheduled, StatusFinalized, false},
		{StatusInProgress, StatusScheduled, false},
		{StatusFinalized, StatusScheduled, false},
		{StatusInProgress, StatusInProgress, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s)=%v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestMatchOpponent(t *testing.T) {
	t.Parallel()

	m := Match{ID: "m1", LocalTeamID: "a", AwayTeamID: "b", Status: StatusScheduled}
	if m.Opponent("a") != "b" || m.Opponent("b") != "a" {
		t.Fatalf("unexpected opponents")
	}
	if m.Opponent("c") != "" {
		t.Fatalf("expected empty opponent for unknown team")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestSummaryValidate(t *testing.T) {
	t.Parallel()

	valid := Summary{
		MatchID:               "m1",
		LocalAmount:           decimal.NewFromInt(50),
		AwayAmount:            decimal.NewFromInt(50),
		ArbitratorName:        "R. Mendez",
		LocalCaptainSignature: "sig-local",
		AwayCaptainSignature:  "sig-away",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid summary: %v", err)
	}

	missing := valid
	missing.AwayCaptainSignature = " "
	if err := missing.Validate(); !errors.Is(err, ErrSummaryIncomplete) {
		t.Fatalf("expected ErrSummaryIncomplete, got %v", err)
	}

	negative := valid
	negative.LocalAmount = decimal.NewFromInt(-1)
	if err := negative.Validate(); !errors.Is(err, ErrSummaryIncomplete) {
		t.Fatalf("expected ErrSummaryIncomplete for negative amount, got %v", err)
	}
}
