// Package scrape extracts build state from the HTML pages served by the
// rdgen server.
//
// The server has no structured API, so the markup patterns matched here are
// the contract. They must stay tolerant of exactly the same markup.
package scrape

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reStatusText     = regexp.MustCompile(`<span id="statusText">(.*?)</span>`)
	reCheckFileQuery = regexp.MustCompile(`window\.location\.replace\('/check_for_file\?(.*)'\);`)
	rePageTitle      = regexp.MustCompile(`<title id="pageTitle">(.*)</title>`)
)

// Title substrings and body markers used to classify status pages.
const (
	TitleGenerating = "generating"
	TitleGenerated  = "generated"

	NoFileGeneratedMarker = "<p>Error: No file generated</p>"
)

// ParseError reports markup that did not match an expected pattern.
type ParseError struct {
	What string
}

func (e *ParseError) Error() string {
	return "problem parsing " + e.What + " from HTML"
}

// Identity identifies one build run on the server.
type Identity struct {
	Filename string
	UUID     string
	Platform string
}

// Stage is the information scraped from an in-progress status page.
type Stage struct {
	Text     string
	Identity Identity
}

// StageText returns the text of the status element.
func StageText(html string) (string, error) {
	m := reStatusText.FindStringSubmatch(html)
	if m == nil {
		return "", &ParseError{What: "build status"}
	}
	return m[1], nil
}

// CheckFileQuery returns the raw query string of the client-side redirect to
// the status endpoint.
func CheckFileQuery(html string) (string, error) {
	m := reCheckFileQuery.FindStringSubmatch(html)
	if m == nil {
		return "", &ParseError{What: "check file query"}
	}
	return m[1], nil
}

// PageTitle returns the page title with its case preserved.
func PageTitle(html string) (string, error) {
	m := rePageTitle.FindStringSubmatch(html)
	if m == nil {
		return "", &ParseError{What: "page title"}
	}
	return m[1], nil
}

// ParseIdentity splits an &-separated key=value query into an Identity.
// Keys other than filename, uuid and platform are passed to unexpected, which
// may be nil.
func ParseIdentity(query string, unexpected func(key, value string)) (Identity, error) {
	var id Identity
	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Identity{}, &ParseError{What: fmt.Sprintf("check file query pair %q", pair)}
		}
		switch key {
		case "filename":
			id.Filename = value
		case "uuid":
			id.UUID = value
		case "platform":
			id.Platform = value
		default:
			if unexpected != nil {
				unexpected(key, value)
			}
		}
	}
	return id, nil
}

// ParseStage extracts the stage text and the build identity from a status
// page.
func ParseStage(html string, unexpected func(key, value string)) (Stage, error) {
	text, err := StageText(html)
	if err != nil {
		return Stage{}, err
	}

	query, err := CheckFileQuery(html)
	if err != nil {
		return Stage{}, err
	}

	id, err := ParseIdentity(query, unexpected)
	if err != nil {
		return Stage{}, err
	}

	return Stage{Text: text, Identity: id}, nil
}
