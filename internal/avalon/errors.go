package avalon

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration            = errors.New("configuration error")
	ErrAssignment               = errors.New("assignment error")
	ErrInvalidProposal          = errors.New("invalid proposal")
	ErrInvalidVote              = errors.New("invalid vote")
	ErrInvalidMissionSubmission = errors.New("invalid mission submission")
	ErrInvalidGuess             = errors.New("invalid guess")
	ErrIllegalPhase             = errors.New("illegal phase transition")
	ErrInvalidSnapshot          = errors.New("invalid snapshot")
)

// ViolationKind tags one reason a character selection was refused.
type ViolationKind string

const (
	ViolationPlayerCount ViolationKind = "player-count"
	ViolationTeamBalance ViolationKind = "team-balance"
	ViolationDependency  ViolationKind = "dependency"
	ViolationConflict    ViolationKind = "conflict"
	ViolationUnknownRole ViolationKind = "unknown-role"
)

type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// ConfigurationError lists every violation found in a selection, not just the
// first one.
type ConfigurationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ConfigurationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Kind, v.Message))
	}
	return fmt.Sprintf("%s: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Has reports whether any violation of kind was recorded.
func (e *ConfigurationError) Has(kind ViolationKind) bool {
	for _, v := range e.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

func (e *ConfigurationError) add(kind ViolationKind, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

func illegalPhase(command string, phase Phase) error {
	return fmt.Errorf("%w: %s is not accepted during %s", ErrIllegalPhase, command, phase)
}
