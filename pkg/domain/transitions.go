package domain

import "strings"

// validTransitions lists the status changes a job may go through.
// Archived is terminal; permanent deletion bypasses this table.
var validTransitions = map[JobStatus][]JobStatus{
	JobDraft:     {JobPublished, JobArchived},
	JobPublished: {JobClosed, JobArchived},
	JobClosed:    {JobArchived},
	JobArchived:  {},
}

// ParseJobStatus converts a raw string into a JobStatus.
func ParseJobStatus(raw string) (JobStatus, bool) {
	s := JobStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validTransitions[s]; ok {
		return s, true
	}
	return "", false
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
