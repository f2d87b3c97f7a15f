package generator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ligustah/rdgen/internal/address"
	rdhttp "github.com/ligustah/rdgen/internal/http"
	"github.com/ligustah/rdgen/internal/links"
	"github.com/ligustah/rdgen/internal/scrape"
)

// Client talks to one rdgen server.
type Client struct {
	http *rdhttp.Client
	base string
	auth *rdhttp.Credentials
	log  logrus.FieldLogger
}

// NewClient creates a generator client for addr.
func NewClient(httpClient *rdhttp.Client, addr address.ServerAddress, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Client{
		http: httpClient,
		base: addr.BaseURL(),
		log:  log.WithField("component", "generator"),
	}
	if user, pass, ok := addr.BasicAuth(); ok {
		c.auth = &rdhttp.Credentials{Username: user, Password: pass}
	}
	return c
}

// BaseURL returns the server base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// Auth returns the credentials sent with every request, or nil.
func (c *Client) Auth() *rdhttp.Credentials {
	return c.auth
}

// Start submits req to the generator and returns the initial stage along
// with the identity of the new build.
func (c *Client) Start(ctx context.Context, req BuildRequest) (scrape.Stage, error) {
	resp, err := c.http.Do(ctx, rdhttp.Request{
		Method:   http.MethodPost,
		URL:      c.base + "/generator",
		Body:     req.Form(),
		BodyType: rdhttp.BodyForm,
		Auth:     c.auth,
	})
	if err != nil {
		return scrape.Stage{}, err
	}
	if err := resp.Err(); err != nil {
		return scrape.Stage{}, fmt.Errorf("failed to start generator: %w", err)
	}

	stage, err := scrape.ParseStage(resp.Text(), func(key, value string) {
		c.log.Warnf("Caught unexpected key in query: '%s':'%s'", key, value)
	})
	if err != nil {
		return scrape.Stage{}, err
	}

	if err := validateIdentity(stage.Identity); err != nil {
		return scrape.Stage{}, err
	}
	if _, err := uuid.Parse(stage.Identity.UUID); err != nil {
		c.log.WithField("uuid", stage.Identity.UUID).Debug("build uuid is not in canonical form")
	}

	return stage, nil
}

// Check fetches the status page for id and classifies it.
func (c *Client) Check(ctx context.Context, id scrape.Identity) (scrape.Status, error) {
	resp, err := c.http.Do(ctx, rdhttp.Request{
		Method: http.MethodGet,
		URL:    c.checkURL(id),
		Auth:   c.auth,
	})
	if err != nil {
		return scrape.Status{}, err
	}
	if err := resp.Err(); err != nil {
		return scrape.Status{}, fmt.Errorf("status check: %w", err)
	}
	return scrape.Classify(resp.Text())
}

// Links returns the download links for the artifacts of id.
func (c *Client) Links(id scrape.Identity) ([]links.DownloadLink, error) {
	return links.Build(c.base, id.Filename, id.Platform, id.UUID)
}

func (c *Client) checkURL(id scrape.Identity) string {
	return fmt.Sprintf("%s/check_for_file?filename=%s&uuid=%s&platform=%s",
		c.base,
		url.QueryEscape(id.Filename),
		url.QueryEscape(id.UUID),
		url.QueryEscape(id.Platform),
	)
}

func validateIdentity(id scrape.Identity) error {
	switch {
	case id.Filename == "":
		return &scrape.ParseError{What: "build identity (missing filename)"}
	case id.UUID == "":
		return &scrape.ParseError{What: "build identity (missing uuid)"}
	case id.Platform == "":
		return &scrape.ParseError{What: "build identity (missing platform)"}
	}
	return nil
}
