package strategy_test

import (
	"math/rand/v2"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/server"
	"github.com/angeloszaimis/lbengine/internal/strategy"
)

var _ = Describe("RandomChoice", func() {
	var strat *strategy.RandomChoiceStrategy

	BeforeEach(func() {
		strat = strategy.NewRandomChoiceStrategy(
			activeServers("a", "b", "c"), 2, rand.New(rand.NewPCG(1, 2)),
		)
	})

	It("should select a server from the pool", func() {
		Expect([]string{"a", "b", "c"}).To(ContainElement(urlOf(strat.NextActiveServer())))
	})

	It("should reserve the selected server", func() {
		selected := strat.NextActiveServer()
		Expect(selected.Connections).To(Equal(1))
		Expect(connectionsOf(strat.Servers(), selected.URL)).To(Equal(1))
	})

	It("should prefer the less loaded server of the sample", func() {
		loaded := strategy.NewRandomChoiceStrategy([]server.Server{
			{URL: "busy", Active: true, Connections: 50},
			{URL: "idle", Active: true, Connections: 0},
		}, 64, rand.New(rand.NewPCG(3, 4)))

		// Sixty-four draws from two servers include the idle one.
		Expect(urlOf(loaded.NextActiveServer())).To(Equal("idle"))
	})

	It("should only sample active servers", func() {
		strat.DisableServer("a")
		strat.DisableServer("b")
		for i := 0; i < 20; i++ {
			Expect(urlOf(strat.NextActiveServer())).To(Equal("c"))
		}
	})

	It("should keep the load spread across servers", func() {
		for i := 0; i < 300; i++ {
			strat.NextActiveServer()
		}

		for _, s := range strat.Servers() {
			Expect(s.Connections).To(BeNumerically("~", 100, 40))
		}
	})

	It("should default the subset size", func() {
		s := strategy.NewRandomChoiceStrategy(activeServers("a", "b"), 0, nil)
		Expect(s.NextActiveServer()).NotTo(BeNil())
	})

	It("should return nil for an empty pool", func() {
		Expect(strategy.NewRandomChoiceStrategy(nil, 2, nil).NextActiveServer()).To(BeNil())
	})

	Describe("ReleaseServer", func() {
		It("should decrement but never below zero", func() {
			selected := strat.NextActiveServer()
			strat.ReleaseServer(selected.URL)
			strat.ReleaseServer(selected.URL)
			Expect(connectionsOf(strat.Servers(), selected.URL)).To(Equal(0))
		})
	})

	It("should count every concurrent selection exactly once", func() {
		shared := strategy.NewRandomChoiceStrategy(activeServers("a", "b", "c"), 2, nil)

		var wg sync.WaitGroup
		for i := 0; i < 300; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				shared.NextActiveServer()
			}()
		}
		wg.Wait()

		total := 0
		for _, s := range shared.Servers() {
			total += s.Connections
		}
		Expect(total).To(Equal(300))
	})
})
