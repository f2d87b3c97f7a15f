// Package address parses user-supplied rdgen server addresses.
package address

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Default ports by scheme.
const (
	PortHTTP  = 80
	PortHTTPS = 443
)

// Error is returned when an address cannot be used to reach the server.
type Error struct {
	Input  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("address %q: %s", e.Input, e.Reason)
}

// ServerAddress is a fully resolved server address.
type ServerAddress struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
}

// Parse normalizes input into a ServerAddress. A missing scheme defaults to
// http; only http and https are accepted.
func Parse(input string) (ServerAddress, error) {
	raw := strings.TrimSpace(input)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ServerAddress{}, &Error{Input: input, Reason: err.Error()}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ServerAddress{}, &Error{Input: input, Reason: fmt.Sprintf("wrong protocol (scheme): %s", u.Scheme)}
	}

	host := u.Hostname()
	if host == "" {
		return ServerAddress{}, &Error{Input: input, Reason: "missing host"}
	}

	addr := ServerAddress{
		Scheme: scheme,
		Host:   host,
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return ServerAddress{}, &Error{Input: input, Reason: fmt.Sprintf("invalid port %q", p)}
		}
		addr.Port = port
	} else if scheme == "https" {
		addr.Port = PortHTTPS
	} else {
		addr.Port = PortHTTP
	}

	if u.User != nil {
		addr.Username = u.User.Username()
		addr.Password, _ = u.User.Password()
	}

	return addr, nil
}

// BaseURL returns scheme://host[:port]. The port is omitted when it is one of
// the well-known HTTP ports.
func (a ServerAddress) BaseURL() string {
	host := a.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if a.Port == PortHTTP || a.Port == PortHTTPS {
		return a.Scheme + "://" + host
	}
	return a.Scheme + "://" + net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// BasicAuth returns the credentials to send, if both parts were supplied.
func (a ServerAddress) BasicAuth() (username, password string, ok bool) {
	if a.Username == "" || a.Password == "" {
		return "", "", false
	}
	return a.Username, a.Password, true
}
