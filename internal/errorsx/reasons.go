package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonInference ReasonCode = "inference"
	ReasonProtocol  ReasonCode = "protocol"

	ReasonValidation  ReasonCode = "validation"
	ReasonUnknownTool ReasonCode = "unknown_tool"
	ReasonTimeout     ReasonCode = "timeout"
	ReasonPanic       ReasonCode = "panic"

	ReasonStore  ReasonCode = "store"
	ReasonConfig ReasonCode = "config"
)
