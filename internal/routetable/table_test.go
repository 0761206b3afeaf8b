package routetable_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/pathproxy/internal/routetable"
)

func TestRouteTable(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RouteTable Suite")
}

var _ = Describe("Table", func() {
	var table *routetable.Table

	BeforeEach(func() {
		var err error
		table, err = routetable.New("127.0.0.1:9000", map[string]string{
			"/api":    "127.0.0.1:9001",
			"/api/v2": "127.0.0.1:9002",
			"/static": "127.0.0.1:9003",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Resolve", func() {
		It("should return the exact route when the path equals a key", func() {
			backend, prefix := table.Resolve("/api")
			Expect(backend).To(Equal("127.0.0.1:9001"))
			Expect(prefix).To(Equal("/api"))
		})

		It("should prefer an exact match even when a shorter key also prefixes the path", func() {
			backend, prefix := table.Resolve("/api/v2")
			Expect(backend).To(Equal("127.0.0.1:9002"))
			Expect(prefix).To(Equal("/api/v2"))
		})

		It("should pick the longest matching prefix", func() {
			backend, prefix := table.Resolve("/api/v2/users")
			Expect(backend).To(Equal("127.0.0.1:9002"))
			Expect(prefix).To(Equal("/api/v2"))
		})

		It("should fall back to a shorter prefix when the longer one does not match", func() {
			backend, prefix := table.Resolve("/api/users")
			Expect(backend).To(Equal("127.0.0.1:9001"))
			Expect(prefix).To(Equal("/api"))
		})

		It("should return the default backend when nothing matches", func() {
			backend, prefix := table.Resolve("/unknown")
			Expect(backend).To(Equal("127.0.0.1:9000"))
			Expect(prefix).To(Equal(""))
		})

		DescribeTable("resolution grid",
			func(path, wantBackend, wantPrefix string) {
				backend, prefix := table.Resolve(path)
				Expect(backend).To(Equal(wantBackend))
				Expect(prefix).To(Equal(wantPrefix))
			},
			Entry("root", "/", "127.0.0.1:9000", ""),
			Entry("prefix with query string attached", "/api/users?id=1", "127.0.0.1:9001", "/api"),
			Entry("static asset", "/static/app.css", "127.0.0.1:9003", "/static"),
			Entry("matching is byte-wise, not segment-wise", "/apiv3", "127.0.0.1:9001", "/api"),
		)
	})

	Describe("New", func() {
		It("should reject a route path without a leading slash", func() {
			_, err := routetable.New("127.0.0.1:9000", map[string]string{
				"api": "127.0.0.1:9001",
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("must start with '/'"))
		})

		It("should reject an empty default backend", func() {
			_, err := routetable.New("", nil)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a route with an empty backend", func() {
			_, err := routetable.New("127.0.0.1:9000", map[string]string{
				"/api": "",
			})
			Expect(err).To(HaveOccurred())
		})

		It("should copy the route map", func() {
			routes := map[string]string{"/api": "127.0.0.1:9001"}
			table, err := routetable.New("127.0.0.1:9000", routes)
			Expect(err).NotTo(HaveOccurred())

			routes["/api"] = "127.0.0.1:9999"

			backend, _ := table.Resolve("/api")
			Expect(backend).To(Equal("127.0.0.1:9001"))
		})
	})
})
