// Package server defines the backend descriptor shared by every strategy.
// A Server is identified by its URL and carries the activity flag plus the
// weight and connection counters used by the weighted and connection-aware
// strategies.
package server
