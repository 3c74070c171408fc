package entities

type SessionStatus string

const (
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusApproved   SessionStatus = "APPROVED"
	StatusRejected   SessionStatus = "REJECTED"
)
