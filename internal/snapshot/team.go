package snapshot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTeam is returned when a team identifier is not recognised.
var ErrInvalidTeam = errors.New("invalid team")

// Team identifies the group that owns a tracked branch. The value is the
// identifier written to the records file.
type Team string

const (
	TeamInstantMessaging Team = "InstantMessaging"
	TeamWorkflow         Team = "Workflow"
	TeamInfrastructure   Team = "Infrastructure"
	TeamProduct          Team = "Product"
	TeamSecurity         Team = "Security"
	TeamOther            Team = "Other"
)

var teamNames = map[Team]string{
	TeamInstantMessaging: "Instant Messaging",
	TeamWorkflow:         "Workflow",
	TeamInfrastructure:   "Infrastructure",
	TeamProduct:          "Product",
	TeamSecurity:         "Security",
	TeamOther:            "Other",
}

// Teams returns every team in display order.
func Teams() []Team {
	return []Team{
		TeamInstantMessaging,
		TeamWorkflow,
		TeamInfrastructure,
		TeamProduct,
		TeamSecurity,
		TeamOther,
	}
}

// ParseTeam converts an identifier such as "InstantMessaging" to a Team.
func ParseTeam(s string) (Team, error) {
	t := Team(s)
	if _, ok := teamNames[t]; ok {
		return t, nil
	}
	ids := make([]string, 0, len(teamNames))
	for _, t := range Teams() {
		ids = append(ids, "`"+string(t)+"`")
	}
	return "", fmt.Errorf("%w %q (expected one of %s)", ErrInvalidTeam, s, strings.Join(ids, ", "))
}

// Valid reports whether t is a known team.
func (t Team) Valid() bool {
	_, ok := teamNames[t]
	return ok
}

// String returns the human readable name, e.g. "Instant Messaging".
func (t Team) String() string {
	if name, ok := teamNames[t]; ok {
		return name
	}
	return string(t)
}

func (t Team) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidTeam, string(t))
	}
	return []byte(t), nil
}

func (t *Team) UnmarshalText(b []byte) error {
	parsed, err := ParseTeam(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
