package runtime

import (
	"fmt"

	re2 "github.com/wasilibs/go-re2"
)

// KnownRuntimeDefect marks a failure matching a documented upstream bug
// rather than a problem with the job itself. Callers branch on it with
// errors.As and may retry the run through a DirectExecutable handle.
type KnownRuntimeDefect struct {
	Class string // defect class identifier
	Err   error  // underlying failure
}

func (e *KnownRuntimeDefect) Error() string {
	return fmt.Sprintf("known runtime defect %s: %v", e.Class, e.Err)
}

func (e *KnownRuntimeDefect) Unwrap() error {
	return e.Err
}

// defectSignature pairs a diagnostic pattern with the defect class it
// identifies.
type defectSignature struct {
	Pattern *re2.Regexp
	Class   string
}

// knownDefects lists upstream failure signatures. The attribute errors
// surface when a backend substitutes a raw string where a structured turn
// object is expected, so the turn's fields cannot be read.
var knownDefects = []defectSignature{
	{
		Pattern: re2.MustCompile(`'str' object has no attribute '(?:role|content|messages)'`),
		Class:   "str_turn_substitution",
	},
	{
		Pattern: re2.MustCompile(`(?i)expected (?:a )?(?:message|turn) object.{0,20}got (?:a )?str`),
		Class:   "str_turn_substitution",
	},
}

// ClassifyError wraps err in a KnownRuntimeDefect when its text matches a
// known signature. Unmatched errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, sig := range knownDefects {
		if sig.Pattern.MatchString(msg) {
			return &KnownRuntimeDefect{Class: sig.Class, Err: err}
		}
	}
	return err
}
