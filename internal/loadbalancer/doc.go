// Package loadbalancer holds the active strategy behind a stable reference.
//
// Callers keep one *LoadBalancer for the life of the process while the policy
// behind it can be replaced with SetStrategy. The swap is a single atomic
// store: calls already running against the old strategy finish there, later
// calls go to the new one.
package loadbalancer
