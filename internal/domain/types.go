package domain

import "fmt"

// RecordStatus represents the lifecycle state of a record
type RecordStatus string

const (
	// RecordStatusLive is the initial state of every record
	RecordStatusLive RecordStatus = "live"
	// RecordStatusUnderReview means a review request is open against the record
	RecordStatusUnderReview RecordStatus = "under_review"
	// RecordStatusVerified is a terminal state reached when a non-counter-evidence review finalizes
	RecordStatusVerified RecordStatus = "verified"
	// RecordStatusFalsified is a terminal state reached when a counter-evidence review finalizes
	RecordStatusFalsified RecordStatus = "falsified"
)

// IsTerminal reports whether no transition may leave the status
func (s RecordStatus) IsTerminal() bool {
	return s == RecordStatusVerified || s == RecordStatusFalsified
}

// IsValidRecordStatus checks if a record status is valid
func IsValidRecordStatus(s RecordStatus) bool {
	switch s {
	case RecordStatusLive, RecordStatusUnderReview, RecordStatusVerified, RecordStatusFalsified:
		return true
	}
	return false
}

// ReviewStatus represents the lifecycle state of a review request
type ReviewStatus string

const (
	// ReviewStatusOpen means the review request is awaiting its expiry
	ReviewStatusOpen ReviewStatus = "open"
	// ReviewStatusFinalized means the review request has settled into a verdict
	ReviewStatusFinalized ReviewStatus = "finalized"
)

// Verdict represents the settled outcome of a finalized review request
type Verdict string

const (
	// VerdictVerified confirms the record's claim
	VerdictVerified Verdict = "verified"
	// VerdictFalsified rejects the record's claim
	VerdictFalsified Verdict = "falsified"
)

// VerdictFor derives the verdict of a review request from its counter-evidence
// flag. The outcome is entirely decided at request creation; there is no
// adjudication step.
func VerdictFor(isCounterEvidence bool) Verdict {
	if isCounterEvidence {
		return VerdictFalsified
	}
	return VerdictVerified
}

// NextRecordStatus returns the record status that a verdict settles the record
// into. Finalizing with a falsified verdict always falsifies the record.
// Finalizing with a verified verdict verifies the record unless it was already
// falsified; that guard protects against a double-finalization race, since at
// most one open review request exists per record.
func NextRecordStatus(current RecordStatus, verdict Verdict) (RecordStatus, error) {
	switch verdict {
	case VerdictFalsified:
		return RecordStatusFalsified, nil
	case VerdictVerified:
		if current == RecordStatusFalsified {
			return RecordStatusFalsified, nil
		}
		return RecordStatusVerified, nil
	}
	return current, fmt.Errorf("unknown verdict %q", verdict)
}
