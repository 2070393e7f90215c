package backend_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/backend"
)

var _ = Describe("Backend", func() {
	var (
		log *slog.Logger
		b   *backend.Backend
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))

		var err error
		b, err = backend.New("http://localhost:8081", log)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("should create a backend with the correct URL", func() {
			Expect(b.URL().String()).To(Equal("http://localhost:8081"))
		})

		It("should provide a reverse proxy", func() {
			Expect(b.ReverseProxy()).NotTo(BeNil())
			Expect(b.ReverseProxy()).To(BeIdenticalTo(b.ReverseProxy()))
		})

		It("should handle https URLs", func() {
			secure, err := backend.New("https://example.com:443", log)
			Expect(err).NotTo(HaveOccurred())
			Expect(secure.URL().Scheme).To(Equal("https"))
			Expect(secure.URL().Host).To(Equal("example.com:443"))
		})

		DescribeTable("should reject unusable URLs",
			func(raw string) {
				_, err := backend.New(raw, log)
				Expect(err).To(MatchError(backend.ErrInvalidURL))
			},
			Entry("missing scheme", "localhost:8081"),
			Entry("unsupported scheme", "ftp://localhost:21"),
			Entry("missing host", "http://"),
			Entry("unparseable", "http://[::1"),
		)
	})

	Describe("Forwarding", func() {
		It("should forward method, path, headers and body", func() {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				w.Header().Set("X-Seen-Method", r.Method)
				w.Header().Set("X-Seen-Header", r.Header.Get("X-Custom"))
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(r.URL.Path + "|" + string(body)))
			}))
			defer upstream.Close()

			fwd, err := backend.New(upstream.URL, log)
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodPost, "/orders/7", strings.NewReader("payload"))
			req.Header.Set("X-Custom", "yes")
			w := httptest.NewRecorder()
			fwd.ReverseProxy().ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusCreated))
			Expect(w.Header().Get("X-Seen-Method")).To(Equal(http.MethodPost))
			Expect(w.Header().Get("X-Seen-Header")).To(Equal("yes"))
			Expect(w.Body.String()).To(Equal("/orders/7|payload"))
		})

		It("should answer 502 when the upstream is unreachable", func() {
			upstream := httptest.NewServer(http.NotFoundHandler())
			upstream.Close()

			fwd, err := backend.New(upstream.URL, log)
			Expect(err).NotTo(HaveOccurred())

			w := httptest.NewRecorder()
			fwd.ReverseProxy().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(w.Code).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("Response time tracking (EWMA)", func() {
		It("should report zero before any response", func() {
			Expect(b.EWMATime()).To(BeZero())
		})

		It("should take the first sample as is", func() {
			b.RecordResponse(100 * time.Millisecond)
			Expect(b.EWMATime()).To(Equal(100 * time.Millisecond))
		})

		It("should smooth subsequent samples", func() {
			b.RecordResponse(100 * time.Millisecond)
			b.RecordResponse(200 * time.Millisecond)
			Expect(b.EWMATime()).To(Equal(120 * time.Millisecond))
		})

		It("should be thread-safe", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					b.RecordResponse(time.Duration(i) * time.Millisecond)
				}(i)
			}
			wg.Wait()
			Expect(b.EWMATime()).To(BeNumerically("<", 100*time.Millisecond))
		})
	})
})

var _ = Describe("Cache", func() {
	var cache *backend.Cache

	BeforeEach(func() {
		cache = backend.NewCache(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("should build a backend once per URL", func() {
		first, err := cache.Get("http://localhost:8081")
		Expect(err).NotTo(HaveOccurred())

		second, err := cache.Get("http://localhost:8081")
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(BeIdenticalTo(second))
	})

	It("should not cache invalid URLs", func() {
		_, err := cache.Get("not a url")
		Expect(err).To(MatchError(backend.ErrInvalidURL))
		Expect(cache.ResponseTimes()).To(BeEmpty())
	})

	It("should rebuild a forgotten backend", func() {
		first, _ := cache.Get("http://localhost:8081")
		cache.Forget("http://localhost:8081")
		second, _ := cache.Get("http://localhost:8081")

		Expect(first).NotTo(BeIdenticalTo(second))
	})

	It("should report response times per URL", func() {
		b, _ := cache.Get("http://localhost:8081")
		b.RecordResponse(40 * time.Millisecond)
		_, _ = cache.Get("http://localhost:8082")

		times := cache.ResponseTimes()
		Expect(times).To(HaveKeyWithValue("http://localhost:8081", 40*time.Millisecond))
		Expect(times).To(HaveKeyWithValue("http://localhost:8082", time.Duration(0)))
	})

	It("should be safe for concurrent use", func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := cache.Get("http://localhost:8081")
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()
		Expect(cache.ResponseTimes()).To(HaveLen(1))
	})
})
