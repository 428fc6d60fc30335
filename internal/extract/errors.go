package extract

import "fmt"

// Error is the extraction failure. It halts a run before analysis starts.
type Error struct {
	Source string
	MIME   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Reason
	if e.MIME != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.MIME)
	}
	if e.Source != "" {
		msg = fmt.Sprintf("%s: %s", e.Source, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "extract: " + msg
}

func (e *Error) Unwrap() error { return e.Err }
