package stanza

// Condition is a stanza error condition
type Condition string

const (
	// ConditionUnauthorized is the unauthorized bounce; RFC 6120 names it not-authorized on the wire
	ConditionUnauthorized          Condition = "not-authorized"
	ConditionFeatureNotImplemented Condition = "feature-not-implemented"
	ConditionServiceUnavailable    Condition = "service-unavailable"
	ConditionBadRequest            Condition = "bad-request"
	ConditionInternalServerError   Condition = "internal-server-error"
)

// ErrorType tells the requester how to react to an error
type ErrorType string

const (
	ErrorTypeAuth   ErrorType = "auth"
	ErrorTypeCancel ErrorType = "cancel"
	ErrorTypeModify ErrorType = "modify"
	ErrorTypeWait   ErrorType = "wait"
)

// Error is the error annotation carried by an IQ of type error.
type Error struct {
	Type      ErrorType `json:"type"`
	Condition Condition `json:"condition"`
	// Code is the legacy numeric error code
	Code int    `json:"code"`
	Text string `json:"text,omitempty"`
}

type conditionInfo struct {
	typ  ErrorType
	code int
}

var conditions = map[Condition]conditionInfo{
	ConditionUnauthorized:          {ErrorTypeAuth, 401},
	ConditionFeatureNotImplemented: {ErrorTypeCancel, 501},
	ConditionServiceUnavailable:    {ErrorTypeCancel, 503},
	ConditionBadRequest:            {ErrorTypeModify, 400},
	ConditionInternalServerError:   {ErrorTypeWait, 500},
}

// NewError builds an Error with the type and legacy code that belong to the condition.
func NewError(condition Condition) *Error {
	info, ok := conditions[condition]
	if !ok {
		info = conditionInfo{ErrorTypeCancel, 500}
	}
	return &Error{
		Type:      info.typ,
		Condition: condition,
		Code:      info.code,
	}
}

func (e *Error) Error() string {
	if e.Text != "" {
		return string(e.Condition) + ": " + e.Text
	}
	return string(e.Condition)
}
