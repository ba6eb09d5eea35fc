// Package network provides the tuned HTTP client shared by every server call.
package network

import (
	"net/http"
	"time"
)

// Client is the HTTP client shared across the application.
// It carries no overall timeout: chapter synthesis can keep a request open for minutes,
// so callers bound each request with a context deadline instead.
var Client = &http.Client{
	Transport: newTransport(),
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 20
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	t.ExpectContinueTimeout = 5 * time.Second
	return t
}
