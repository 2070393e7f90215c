// Package backend forwards requests to pool servers.
//
// A Backend wraps one httputil.ReverseProxy per server URL and tracks an
// exponentially weighted moving average of its response times. Cache builds
// backends lazily the first time a URL is selected, so servers added at
// runtime need no extra registration.
package backend
