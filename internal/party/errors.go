package party

import (
	"errors"
	"fmt"
	"strings"

	"github.com/programmingdumpster/partybot/internal/repository"
)

// Validation errors. Nothing is mutated when one of these is returned.
var (
	ErrInvalidName        = errors.New("party name has invalid length")
	ErrNameUnchanged      = errors.New("party name is unchanged")
	ErrIsLeader           = errors.New("user is the party leader")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrAlreadyPending     = errors.New("user already has a pending join request")
	ErrNotMember          = errors.New("user is not a member")
	ErrCannotRemoveSelf   = errors.New("leader cannot remove themselves")
	ErrLeaderCannotLeave  = errors.New("leader cannot leave the party, disband it instead")
	ErrAlreadyLeader      = errors.New("user already leads a party")
	ErrCreationInProgress = errors.New("party creation already in progress")
	ErrAmbiguousParty     = errors.New("party identifier matches more than one party")
)

// Authorization.
var ErrNotLeader = errors.New("only the party leader can do this")

// Not found.
var (
	ErrPartyNotFound    = errors.New("party not found")
	ErrDecisionNotFound = errors.New("join request decision not found")
)

// Resource errors raised by collaborators or while talking to them.
var (
	ErrLeaderUnreachable  = errors.New("party leader cannot be reached")
	ErrGuildUnavailable   = errors.New("guild is unavailable")
	ErrMemberNotInGuild   = errors.New("user is no longer in the guild")
	ErrProvisionFailed    = errors.New("failed to provision party resources")
	ErrAnnouncementFailed = errors.New("failed to publish party announcement")
)

// Idempotency.
var ErrAlreadyDecided = errors.New("join request was already decided")

type AmbiguousPartyError struct {
	Candidates []repository.Party
}

func (e *AmbiguousPartyError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, p := range e.Candidates {
		names = append(names, fmt.Sprintf("%s (%s)", p.PartyName, p.PartyID))
	}
	return fmt.Sprintf("%s: %s", ErrAmbiguousParty, strings.Join(names, ", "))
}

func (e *AmbiguousPartyError) Is(target error) bool {
	return target == ErrAmbiguousParty
}

func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidName, ErrNameUnchanged, ErrIsLeader, ErrAlreadyMember, ErrAlreadyPending,
		ErrNotMember, ErrCannotRemoveSelf, ErrLeaderCannotLeave, ErrAlreadyLeader,
		ErrCreationInProgress, ErrAmbiguousParty,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotLeader)
}
