// Package http provides the request helper used to talk to the rdgen server.
//
// This package handles:
//   - Form and JSON request bodies
//   - Optional HTTP basic auth
//   - A bounded number of attempts on transport failures
//   - Streaming GETs for artifact downloads
//
// HTTP error statuses are not retried. They are returned to the caller as a
// normal response whose Err method yields a *StatusError.
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	resp, err := client.Do(ctx, http.Request{
//	    Method:   "POST",
//	    URL:      base + "/generator",
//	    Body:     form,
//	    BodyType: http.BodyForm,
//	})
//	if err == nil {
//	    err = resp.Err()
//	}
package http
