package services

import "errors"

// Engine error taxonomy. Controllers map these sentinels onto HTTP codes;
// the engines themselves never write a response and never panic.
var (
	// ErrUnauthorized means the actor's role check failed. No writes occur.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means a submission, document or assignment id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrIllegalTransition means a status change outside the legal-successor
	// table was attempted, or the status moved concurrently under the caller.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInvalidClassification means the classification tag is outside the
	// closed tier set. Rejected at the boundary, nothing is written.
	ErrInvalidClassification = errors.New("invalid classification")

	// ErrAlreadyClassified means the submission has a classification and
	// reviewer assignments already exist for it.
	ErrAlreadyClassified = errors.New("submission already classified")

	// ErrDuplicateAssignment means a reviewer is already assigned to the
	// submission, or appears twice in one assignment request.
	ErrDuplicateAssignment = errors.New("duplicate reviewer assignment")

	// ErrIncompleteBatch means a verification batch did not cover every
	// application document of the submission. Nothing is written.
	ErrIncompleteBatch = errors.New("incomplete verification batch")

	// ErrIncompleteReset means rejected verifications remained after the
	// resubmission reset, typically from a concurrent re-rejection.
	ErrIncompleteReset = errors.New("verification reset incomplete")

	// ErrPartialAssignmentFailure means one of the assignment inserts failed.
	// The surrounding transaction rolls back, so no status change survives.
	ErrPartialAssignmentFailure = errors.New("partial assignment failure")
)

// Actor identifies the authenticated caller for the engine role checks.
type Actor struct {
	ID   int
	Role string
}

// HasRole reports whether the actor holds one of the given roles.
func (a Actor) HasRole(roles ...string) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
