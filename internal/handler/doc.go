// Package handler implements the proxy entry point of the load balancer.
// It resolves the client IP, asks the load balancer for a server, forwards the
// request and releases the server once the response is written. Requests that
// find no selectable server are answered with 503.
package handler
