package scrape

import (
	"fmt"
	"strings"
)

// State is the coarse state of a build as shown by a status page.
type State int

const (
	StateGenerating State = iota
	StateGenerated
	StateGeneratedWithError
)

func (s State) String() string {
	switch s {
	case StateGenerating:
		return "generating"
	case StateGenerated:
		return "generated"
	case StateGeneratedWithError:
		return "generated with error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is derived from a single status page and never persisted.
type Status struct {
	State State
	// Stage holds the progress text while generating.
	Stage string
	// Title is the raw page title.
	Title string
}

// UnknownTitleError is returned when the page title matches no known state.
type UnknownTitleError struct {
	Title string
}

func (e *UnknownTitleError) Error() string {
	return fmt.Sprintf("unexpected page title: %s", e.Title)
}

// Classify derives the build status from a status page. The title is
// matched case-insensitively; "generating" is checked before "generated".
func Classify(html string) (Status, error) {
	title, err := PageTitle(html)
	if err != nil {
		return Status{}, err
	}

	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, TitleGenerating):
		stage, err := StageText(html)
		if err != nil {
			return Status{}, err
		}
		return Status{State: StateGenerating, Stage: stage, Title: title}, nil
	case strings.Contains(lower, TitleGenerated):
		if strings.Contains(html, NoFileGeneratedMarker) {
			return Status{State: StateGeneratedWithError, Title: title}, nil
		}
		return Status{State: StateGenerated, Title: title}, nil
	default:
		return Status{}, &UnknownTitleError{Title: lower}
	}
}
