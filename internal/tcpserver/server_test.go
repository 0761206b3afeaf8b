package tcpserver_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/pathproxy/internal/tcpserver"
)

func TestTCPServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "TCPServer Suite")
}

type echoHandler struct{}

func (echoHandler) Handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	io.Copy(conn, conn)
}

type panicHandler struct{}

func (panicHandler) Handle(ctx context.Context, conn net.Conn) {
	panic("boom")
}

var _ = Describe("Server", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	})

	Describe("New", func() {
		It("should reject an address without a port", func() {
			_, err := tcpserver.New("not-an-address", echoHandler{}, log)
			Expect(err).To(HaveOccurred())
		})

		It("should bind immediately on a valid address", func() {
			srv, err := tcpserver.New("127.0.0.1:0", echoHandler{}, log)
			Expect(err).NotTo(HaveOccurred())
			defer srv.Shutdown()

			Expect(srv.Addr().String()).NotTo(BeEmpty())
		})
	})

	Describe("Start", func() {
		It("should dispatch each connection to the handler", func() {
			srv, err := tcpserver.New("127.0.0.1:0", echoHandler{}, log)
			Expect(err).NotTo(HaveOccurred())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(context.Background()) }()

			conn, err := net.Dial("tcp", srv.Addr().String())
			Expect(err).NotTo(HaveOccurred())
			defer conn.Close()

			_, err = conn.Write([]byte("ping"))
			Expect(err).NotTo(HaveOccurred())
			Expect(conn.(*net.TCPConn).CloseWrite()).To(Succeed())

			echoed, err := io.ReadAll(conn)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(echoed)).To(Equal("ping"))

			Expect(srv.Shutdown()).To(Succeed())
			Eventually(errCh).Should(Receive(BeNil()))
		})

		It("should survive a panicking handler and keep accepting", func() {
			srv, err := tcpserver.New("127.0.0.1:0", panicHandler{}, log)
			Expect(err).NotTo(HaveOccurred())
			defer srv.Shutdown()

			go srv.Start(context.Background())

			for i := 0; i < 2; i++ {
				conn, err := net.Dial("tcp", srv.Addr().String())
				Expect(err).NotTo(HaveOccurred())

				// The recovered panic closes the connection.
				buf := make([]byte, 1)
				_, readErr := conn.Read(buf)
				Expect(readErr).To(HaveOccurred())
				conn.Close()
			}
		})
	})
})
