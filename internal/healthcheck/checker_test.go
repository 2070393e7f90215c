package healthcheck_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/circuitbreaker"
	"github.com/angeloszaimis/lbengine/internal/healthcheck"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// scriptedChecker returns the queued answers in order, then repeats the last.
type scriptedChecker struct {
	answers []bool
	calls   atomic.Int32
}

func (s *scriptedChecker) Check(context.Context, server.Server) bool {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.answers) {
		n = len(s.answers) - 1
	}
	return s.answers[n]
}

var _ = Describe("Checkers", func() {
	var (
		log *slog.Logger
		ctx context.Context
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx = context.Background()
	})

	Describe("HTTPChecker", func() {
		var (
			status  atomic.Int32
			lastURL atomic.Value
			backend *httptest.Server
		)

		BeforeEach(func() {
			status.Store(http.StatusOK)
			backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				lastURL.Store(r.URL.Path)
				w.WriteHeader(int(status.Load()))
			}))
		})

		AfterEach(func() {
			backend.Close()
		})

		It("should report a 2xx response as healthy", func() {
			checker := healthcheck.NewHTTPChecker(time.Second, "", log)
			Expect(checker.Check(ctx, server.Server{URL: backend.URL})).To(BeTrue())
			Expect(lastURL.Load()).To(Equal("/health"))
		})

		It("should accept 204 as healthy", func() {
			status.Store(http.StatusNoContent)
			checker := healthcheck.NewHTTPChecker(time.Second, "/health", log)
			Expect(checker.Check(ctx, server.Server{URL: backend.URL})).To(BeTrue())
		})

		It("should report a non-2xx response as unhealthy", func() {
			status.Store(http.StatusServiceUnavailable)
			checker := healthcheck.NewHTTPChecker(time.Second, "/health", log)
			Expect(checker.Check(ctx, server.Server{URL: backend.URL})).To(BeFalse())
		})

		It("should probe a custom path without doubling slashes", func() {
			checker := healthcheck.NewHTTPChecker(time.Second, "ready", log)
			Expect(checker.Check(ctx, server.Server{URL: backend.URL + "/"})).To(BeTrue())
			Expect(lastURL.Load()).To(Equal("/ready"))
		})

		It("should swallow transport errors", func() {
			backend.Close()
			checker := healthcheck.NewHTTPChecker(time.Second, "/health", log)
			Expect(checker.Check(ctx, server.Server{URL: backend.URL})).To(BeFalse())
		})

		It("should swallow malformed URLs", func() {
			checker := healthcheck.NewHTTPChecker(time.Second, "/health", log)
			Expect(checker.Check(ctx, server.Server{URL: "://bad"})).To(BeFalse())
		})
	})

	Describe("NoopChecker", func() {
		It("should always report healthy", func() {
			Expect(healthcheck.NoopChecker{}.Check(ctx, server.Server{URL: "http://nowhere.invalid"})).To(BeTrue())
		})
	})

	Describe("BreakerChecker", func() {
		var srv server.Server

		BeforeEach(func() {
			srv = server.Server{URL: "http://localhost:8081", Active: true}
		})

		It("should tolerate failures below the threshold", func() {
			next := &scriptedChecker{answers: []bool{false, false, false}}
			checker := healthcheck.NewBreakerChecker(next, circuitbreaker.NewRegistry(3, time.Minute))

			Expect(checker.Check(ctx, srv)).To(BeTrue())
			Expect(checker.Check(ctx, srv)).To(BeTrue())
			Expect(checker.Check(ctx, srv)).To(BeFalse())
		})

		It("should stop probing while the breaker is open", func() {
			next := &scriptedChecker{answers: []bool{false}}
			checker := healthcheck.NewBreakerChecker(next, circuitbreaker.NewRegistry(1, time.Minute))

			Expect(checker.Check(ctx, srv)).To(BeFalse())
			Expect(checker.Check(ctx, srv)).To(BeFalse())
			Expect(checker.Check(ctx, srv)).To(BeFalse())
			Expect(next.calls.Load()).To(Equal(int32(1)))
		})

		It("should recover through half-open after the reset timeout", func() {
			next := &scriptedChecker{answers: []bool{false, true}}
			checker := healthcheck.NewBreakerChecker(next, circuitbreaker.NewRegistry(1, 0))

			Expect(checker.Check(ctx, srv)).To(BeFalse())
			Expect(checker.Check(ctx, srv)).To(BeTrue())
		})

		It("should forget breakers of servers no longer retained", func() {
			registry := circuitbreaker.NewRegistry(1, time.Minute)
			checker := healthcheck.NewBreakerChecker(healthcheck.NoopChecker{}, registry)

			checker.Check(ctx, server.Server{URL: "http://a"})
			checker.Check(ctx, server.Server{URL: "http://b"})
			checker.Retain([]string{"http://b"})

			Expect(registry.Stats()).To(HaveLen(1))
			Expect(registry.Stats()).To(HaveKey("http://b"))
		})
	})
})
