package circuitbreaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/circuitbreaker"
)

var _ = Describe("CircuitBreaker", func() {
	var (
		cb  *circuitbreaker.CircuitBreaker
		now time.Time
	)

	advance := func(d time.Duration) { now = now.Add(d) }

	BeforeEach(func() {
		now = time.Unix(1_700_000_000, 0)
		cb = circuitbreaker.NewCircuitBreaker(3, 100*time.Millisecond)
		cb.SetClock(func() time.Time { return now })
	})

	Describe("NewCircuitBreaker", func() {
		It("should start closed", func() {
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should treat a zero threshold as one", func() {
			single := circuitbreaker.NewCircuitBreaker(0, time.Second)
			single.RecordFailure()
			Expect(single.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("State transitions", func() {
		Context("when in CLOSED state", func() {
			It("should allow probes", func() {
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should remain closed after failures below threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Failures()).To(Equal(2))
			})

			It("should open after reaching failure threshold", func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})
		})

		Context("when in OPEN state", func() {
			BeforeEach(func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
			})

			It("should suppress probes before the reset timeout", func() {
				advance(50 * time.Millisecond)
				Expect(cb.Allow()).To(BeFalse())
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			})

			It("should move to HALF-OPEN after the reset timeout", func() {
				advance(100 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))
			})
		})

		Context("when in HALF-OPEN state", func() {
			BeforeEach(func() {
				cb.RecordFailure()
				cb.RecordFailure()
				cb.RecordFailure()
				advance(150 * time.Millisecond)
				Expect(cb.Allow()).To(BeTrue())
			})

			It("should close on success", func() {
				cb.RecordSuccess()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
				Expect(cb.Failures()).To(Equal(0))
			})

			It("should reopen on failure and restart the timeout", func() {
				cb.RecordFailure()
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

				advance(50 * time.Millisecond)
				Expect(cb.Allow()).To(BeFalse())
			})
		})
	})

	Describe("RecordSuccess", func() {
		It("should reset failure count", func() {
			cb.RecordFailure()
			cb.RecordFailure()
			cb.RecordSuccess()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("State.String", func() {
		It("should return correct string representation", func() {
			Expect(circuitbreaker.StateClosed.String()).To(Equal("CLOSED"))
			Expect(circuitbreaker.StateOpen.String()).To(Equal("OPEN"))
			Expect(circuitbreaker.StateHalfOpen.String()).To(Equal("HALF-OPEN"))
			Expect(circuitbreaker.State(9).String()).To(Equal("UNKNOWN"))
		})
	})
})
