// Package healthcheck probes servers and keeps their activity flag current.
//
// A Checker answers whether one server is healthy. HTTPChecker issues a GET to
// the server's health path, NoopChecker always reports healthy, and
// BreakerChecker wraps another checker with a per-server circuit breaker so a
// single failed probe does not take a server out of rotation.
//
// Monitor runs rounds on a fixed interval. Each round probes every server of
// the pool concurrently and then enables or disables servers whose result
// differs from their current activity.
package healthcheck
