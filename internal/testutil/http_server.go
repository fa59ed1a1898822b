package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewHTTPServer starts an httptest server on 127.0.0.1. Sandboxes without
// IPv6 often fail httptest's default listener; if IPv4 fails too it falls
// back to httptest.NewServer.
func NewHTTPServer(handler http.Handler) *httptest.Server {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		return httptest.NewServer(handler)
	}
	return startOn(ln, handler)
}

// NewHTTPServerT is NewHTTPServer for tests: it skips t when no IPv4
// listener is available. The caller closes the server.
func NewHTTPServerT(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp4 listener unavailable: %v", err)
		return nil
	}
	return startOn(ln, handler)
}

func startOn(ln net.Listener, handler http.Handler) *httptest.Server {
	srv := &httptest.Server{
		Listener: ln,
		Config:   &http.Server{Handler: handler},
	}
	srv.Start()
	return srv
}
