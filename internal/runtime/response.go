package runtime

import (
	"errors"
	"fmt"
)

// Response is the result of running a target. Providers answer in several
// shapes; each variant knows how to yield its plain text.
type Response interface {
	// Text extracts the plain-text content of the response.
	Text() (string, error)
}

// ContentResponse carries a single completed answer, as produced by an
// agent run.
type ContentResponse struct {
	Content string
}

// Text returns the answer content.
func (r ContentResponse) Text() (string, error) {
	return r.Content, nil
}

// Turn is one attributed message inside a team run.
type Turn struct {
	Agent   string `json:"agent"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnsResponse carries the full turn sequence of a team run. Its text is
// the content of the final turn.
type TurnsResponse struct {
	Turns []Turn
}

// Text returns the content of the last turn.
func (r TurnsResponse) Text() (string, error) {
	if len(r.Turns) == 0 {
		return "", errors.New("response has no turns")
	}
	return r.Turns[len(r.Turns)-1].Content, nil
}

// StringResponse is a bare string answer, as produced by direct execution
// paths and plugin runs.
type StringResponse string

// Text returns the string itself.
func (r StringResponse) Text() (string, error) {
	return string(r), nil
}

// Normalize coerces a value of any supported shape into a Response.
// Responses pass through unchanged, strings become StringResponse and
// turn slices become TurnsResponse. Anything else is an error.
func Normalize(v any) (Response, error) {
	switch t := v.(type) {
	case nil:
		return nil, errors.New("nil response")
	case Response:
		return t, nil
	case string:
		return StringResponse(t), nil
	case []Turn:
		return TurnsResponse{Turns: t}, nil
	default:
		return nil, fmt.Errorf("unsupported response shape %T", v)
	}
}
