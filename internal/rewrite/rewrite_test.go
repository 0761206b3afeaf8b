package rewrite_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/pathproxy/internal/rewrite"
)

func TestRewrite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rewrite Suite")
}

var _ = Describe("StripPrefix", func() {
	const request = "GET /api/v1/x HTTP/1.1\r\nHost: Example.COM\r\nX-Custom: kEEp-cAsIng\r\n\r\n"

	It("should strip the matched prefix from the request line", func() {
		out := rewrite.StripPrefix([]byte(request), "/api")
		Expect(string(out)).To(HavePrefix("GET /v1/x HTTP/1.1\r\n"))
	})

	It("should leave every byte after the first line untouched", func() {
		out := rewrite.StripPrefix([]byte(request), "/api")
		Expect(string(out)).To(HaveSuffix("\r\nHost: Example.COM\r\nX-Custom: kEEp-cAsIng\r\n\r\n"))
	})

	It("should preserve body bytes already buffered past the headers", func() {
		raw := "POST /api/items HTTP/1.1\r\nContent-Length: 9\r\n\r\nhello=\xff\x00!"
		out := rewrite.StripPrefix([]byte(raw), "/api")
		Expect(out).To(Equal([]byte("POST /items HTTP/1.1\r\nContent-Length: 9\r\n\r\nhello=\xff\x00!")))
	})

	It("should return the input unchanged for an empty prefix", func() {
		raw := []byte(request)
		out := rewrite.StripPrefix(raw, "")
		Expect(out).To(Equal(raw))
	})

	It("should re-root a fully stripped path to /", func() {
		out := rewrite.StripPrefix([]byte("GET /api HTTP/1.1\r\n\r\n"), "/api")
		Expect(string(out)).To(Equal("GET / HTTP/1.1\r\n\r\n"))
	})

	It("should return the input unchanged when the first line has extra tokens", func() {
		raw := []byte("GET /api HTTP/1.1 junk\r\n\r\n")
		Expect(rewrite.StripPrefix(raw, "/api")).To(Equal(raw))
	})

	It("should return the input unchanged when no line terminator exists", func() {
		raw := []byte("GET /api HTTP/1.1")
		Expect(rewrite.StripPrefix(raw, "/api")).To(Equal(raw))
	})

	DescribeTable("prefix stripping rule",
		func(path, prefix, want string) {
			Expect(rewrite.NewPath(path, prefix)).To(Equal(want))
		},
		Entry("prefix equals path", "/api", "/api", "/"),
		Entry("nested path", "/api/v1/x", "/api", "/v1/x"),
		Entry("no match passes through", "/other", "/api", "/other"),
		Entry("empty prefix passes through", "/api/v1", "", "/api/v1"),
		Entry("byte-wise remainder is re-rooted", "/apiv3", "/api", "/v3"),
		Entry("query string travels with the suffix", "/api/v1?x=1", "/api", "/v1?x=1"),
	)
})
