package httpserver_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/httpserver"
)

// freeAddr reserves a loopback port and releases it for the server under test.
func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := l.Addr().String()
	Expect(l.Close()).To(Succeed())
	return addr
}

var _ = Describe("HTTP Server", func() {
	var (
		log  *slog.Logger
		noop http.Handler
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		noop = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	})

	Context("server creation", func() {
		DescribeTable("accepts valid addresses",
			func(addr string) {
				srv, err := httpserver.New(addr, noop, log)
				Expect(err).NotTo(HaveOccurred())
				Expect(srv.Addr()).To(Equal(addr))
			},
			Entry("hostname", "localhost:9999"),
			Entry("IP address", "127.0.0.1:9999"),
			Entry("port only", ":9999"),
		)

		DescribeTable("rejects invalid addresses",
			func(addr string) {
				srv, err := httpserver.New(addr, noop, log)
				Expect(err).To(HaveOccurred())
				Expect(srv).To(BeNil())
			},
			Entry("empty", ""),
			Entry("too many colons", "invalid:host:port"),
			Entry("missing port", "localhost:"),
			Entry("port out of range", "localhost:70000"),
			Entry("bad host", "bad_host!:8080"),
		)
	})

	Context("server lifecycle", func() {
		var testServer *httpserver.Server

		AfterEach(func() {
			if testServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = testServer.Shutdown(ctx)
			}
		})

		It("starts and handles requests", func() {
			addr := freeAddr()
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("test"))
			})

			var err error
			testServer, err = httpserver.New(addr, handler, log)
			Expect(err).NotTo(HaveOccurred())

			go func() {
				_ = testServer.Start()
			}()

			var resp *http.Response
			Eventually(func() error {
				resp, err = http.Get("http://" + addr)
				return err
			}).Should(Succeed())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("test"))
		})

		It("stops Run when the context is cancelled", func() {
			addr := freeAddr()
			srv, err := httpserver.New(addr, noop, log)
			Expect(err).NotTo(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() {
				done <- srv.Run(ctx)
			}()

			Eventually(func() error {
				conn, err := net.Dial("tcp", addr)
				if err == nil {
					conn.Close()
				}
				return err
			}).Should(Succeed())

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("reports listen failures from Run", func() {
			l, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			defer l.Close()

			srv, err := httpserver.New(l.Addr().String(), noop, log)
			Expect(err).NotTo(HaveOccurred())

			Expect(srv.Run(context.Background())).To(HaveOccurred())
		})
	})
})
