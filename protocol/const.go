package protocol

// Configuration constants from spec.md §6.
const (
	ConnectionTimeoutMS = 6000
	AckTimeoutMS        = 3000
	MaxRepetitionCount  = 3
)
