package evaluation

import "fmt"

// Kind classifies why an evaluation stopped early
type Kind int

const (
	UnexpectedError Kind = iota
	NoPriceData
	NoSharesOutstanding
	NoAnnualData
	InsufficientAnnualHistory
	NoQuarterlyData
	InsufficientQuarterlyHistory
)

var kindNames = map[Kind]string{
	UnexpectedError:              "UnexpectedError",
	NoPriceData:                  "NoPriceData",
	NoSharesOutstanding:          "NoSharesOutstanding",
	NoAnnualData:                 "NoAnnualData",
	InsufficientAnnualHistory:    "InsufficientAnnualHistory",
	NoQuarterlyData:              "NoQuarterlyData",
	InsufficientQuarterlyHistory: "InsufficientQuarterlyHistory",
}

var kindMessages = map[Kind]string{
	NoPriceData:                  "Failed to retrieve stock price data.",
	NoSharesOutstanding:          "Not enough financial data to calculate EPS.",
	NoAnnualData:                 "Not enough annual financial data to calculate the fair value.",
	InsufficientAnnualHistory:    "Not enough historical annual EPS data to calculate growth rate.",
	NoQuarterlyData:              "Not enough quarterly financial data to calculate the fair value.",
	InsufficientQuarterlyHistory: "Not enough historical quarterly EPS data to calculate growth rate.",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the terminal outcome of an evaluation step
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the line shown to the user
func (e *Error) Message() string {
	if msg, ok := kindMessages[e.Kind]; ok {
		return msg
	}
	if e.Err == nil {
		return "An error occurred."
	}
	return fmt.Sprintf("An error occurred: %v", e.Err)
}
