package strategy_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/server"
	"github.com/angeloszaimis/lbengine/internal/strategy"
)

var _ = Describe("Leastconn", func() {
	var strat *strategy.LeastConnStrategy

	BeforeEach(func() {
		strat = strategy.NewLeastConnStrategy([]server.Server{
			{URL: "http://localhost:8081", Active: true, Connections: 1},
			{URL: "http://localhost:8082", Active: true, Connections: 0},
			{URL: "http://localhost:8083", Active: true, Connections: 2},
		})
	})

	Describe("NextActiveServer", func() {
		It("should select server with fewest connections and reserve it", func() {
			selected := strat.NextActiveServer()
			Expect(urlOf(selected)).To(Equal("http://localhost:8082"))
			Expect(selected.Connections).To(Equal(1))
			Expect(connectionsOf(strat.Servers(), "http://localhost:8082")).To(Equal(1))
		})

		It("should prefer the first server on ties", func() {
			strat.NextActiveServer()
			Expect(urlOf(strat.NextActiveServer())).To(Equal("http://localhost:8081"))
		})

		It("should ignore inactive servers", func() {
			strat.DisableServer("http://localhost:8082")
			Expect(urlOf(strat.NextActiveServer())).To(Equal("http://localhost:8081"))
		})

		It("should return nil for an empty pool", func() {
			Expect(strategy.NewLeastConnStrategy(nil).NextActiveServer()).To(BeNil())
		})
	})

	Describe("ReleaseServer", func() {
		It("should return the counter to its previous value", func() {
			strat.NextActiveServer()
			strat.ReleaseServer("http://localhost:8082")
			Expect(connectionsOf(strat.Servers(), "http://localhost:8082")).To(Equal(0))
		})

		It("should never go below zero", func() {
			strat.ReleaseServer("http://localhost:8082")
			strat.ReleaseServer("http://localhost:8082")
			Expect(connectionsOf(strat.Servers(), "http://localhost:8082")).To(Equal(0))
		})

		It("should ignore unknown servers", func() {
			strat.ReleaseServer("http://unknown")
			Expect(strat.Servers()).To(HaveLen(3))
		})
	})

	Describe("concurrency", func() {
		It("should not lose increments under concurrent selection", func() {
			strat = strategy.NewLeastConnStrategy(activeServers("a", "b", "c", "d"))

			var wg sync.WaitGroup
			for i := 0; i < 400; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					strat.NextActiveServer()
				}()
			}
			wg.Wait()

			total := 0
			for _, s := range strat.Servers() {
				Expect(s.Connections).To(Equal(100))
				total += s.Connections
			}
			Expect(total).To(Equal(400))
		})

		It("should balance interleaved selects and releases", func() {
			strat = strategy.NewLeastConnStrategy(activeServers("a", "b"))

			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					s := strat.NextActiveServer()
					strat.ReleaseServer(s.URL)
				}()
			}
			wg.Wait()

			for _, s := range strat.Servers() {
				Expect(s.Connections).To(Equal(0))
			}
		})
	})
})
