// Package httpserver runs the load balancer's HTTP listener with validated
// addresses, fixed timeouts and graceful shutdown.
package httpserver
