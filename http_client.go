package main

import (
	"net/http"
	"time"
)

// Shared client for completion providers that accept a raw *http.Client.
// The per-query retrieval timeout still applies through context; this bound
// only caps a hung connection.
const externalHTTPTimeout = 60 * time.Second

var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
