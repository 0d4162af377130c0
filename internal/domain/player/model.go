package player

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPlayer = errors.New("invalid player")

const maxShirtNumber = 99

// Player is a squad member as published by the team directory.
type Player struct {
	ID          string
	TeamID      string
	Name        string
	ShirtNumber int
}

// Validate reports every problem at once, each wrapping ErrInvalidPlayer.
func (p Player) Validate() error {
	var errs []error
	require := func(field, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalidPlayer, field))
		}
	}
	require("id", p.ID)
	require("team id", p.TeamID)
	require("name", p.Name)
	if p.ShirtNumber < 0 || p.ShirtNumber > maxShirtNumber {
		errs = append(errs, fmt.Errorf("%w: shirt number %d outside 0-%d", ErrInvalidPlayer, p.ShirtNumber, maxShirtNumber))
	}
	return errors.Join(errs...)
}

