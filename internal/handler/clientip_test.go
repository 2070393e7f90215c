package handler_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/lbengine/internal/handler"
)

var _ = Describe("TrustedProxies", func() {
	request := func(remote, xff string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if xff != "" {
			req.Header.Set("X-Forwarded-For", xff)
		}
		return req
	}

	Describe("NewTrustedProxies", func() {
		It("should accept CIDRs and bare addresses", func() {
			_, err := handler.NewTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1", "::1"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject garbage", func() {
			_, err := handler.NewTrustedProxies([]string{"not-an-ip"})
			Expect(err).To(MatchError(handler.ErrInvalidProxy))

			_, err = handler.NewTrustedProxies([]string{"10.0.0.0/99"})
			Expect(err).To(MatchError(handler.ErrInvalidProxy))
		})
	})

	Describe("ClientIP", func() {
		var proxies *handler.TrustedProxies

		BeforeEach(func() {
			var err error
			proxies, err = handler.NewTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should use the first forwarded hop from a trusted peer", func() {
			Expect(proxies.ClientIP(request("10.1.2.3:5555", "203.0.113.7, 10.1.2.3"))).To(Equal("203.0.113.7"))
			Expect(proxies.ClientIP(request("127.0.0.1:5555", " client1 "))).To(Equal("client1"))
		})

		It("should ignore forwarded headers from untrusted peers", func() {
			Expect(proxies.ClientIP(request("198.51.100.4:5555", "203.0.113.7"))).To(Equal("198.51.100.4"))
		})

		It("should fall back to the peer without a forwarded header", func() {
			Expect(proxies.ClientIP(request("10.1.2.3:5555", ""))).To(Equal("10.1.2.3"))
		})

		It("should trust nobody when no proxies are configured", func() {
			empty, err := handler.NewTrustedProxies(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(empty.ClientIP(request("10.1.2.3:5555", "203.0.113.7"))).To(Equal("10.1.2.3"))
		})

		It("should trust nobody on a nil receiver", func() {
			var none *handler.TrustedProxies
			Expect(none.ClientIP(request("10.1.2.3:5555", "203.0.113.7"))).To(Equal("10.1.2.3"))
		})

		It("should keep a remote address without a port", func() {
			Expect(proxies.ClientIP(request("198.51.100.4", ""))).To(Equal("198.51.100.4"))
		})
	})
})
