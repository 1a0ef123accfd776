package handler

const (
	errInternalServer   = "Internal server error"
	errInvalidEvent     = "Event payload is not valid JSON"
	errInvalidBody      = "Request body is invalid"
	errInvalidRecords   = "Configuration is invalid"
	errConfigNotFound   = "Configuration object not found"
	errPeriodOrSchedule = "Exactly one of period or schedule is required"
	errRunAborted       = "Run aborted"
)
