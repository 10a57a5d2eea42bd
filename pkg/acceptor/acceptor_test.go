package acceptor

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/balance/pkg/connector"
	"github.com/therealutkarshpriyadarshi/balance/pkg/lb"
	"github.com/therealutkarshpriyadarshi/balance/pkg/pool"
	"github.com/therealutkarshpriyadarshi/balance/pkg/resilience"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestNewRejectsBadIPVersion(t *testing.T) {
	if _, err := New(0, IPVersion(5), nil, nil, nil, 0); err == nil {
		t.Fatal("expected error for ip_version 5")
	}
}

// TestAcceptorForwardsConnections reproduces the acceptor's role in
// spec.md §4.6: bind, accept, hand the socket to the connector, and on
// Stop drain in-flight sessions before Run returns.
func TestAcceptorForwardsConnections(t *testing.T) {
	backendLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen backend: %v", err)
	}
	defer backendLn.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := backendLn.Accept()
		if err == nil {
			accepted <- c
		}
	}()
	backendAddr := backendLn.Addr().(*net.TCPAddr)

	cfg := lb.Config{
		Algorithm: "round_robin",
		Endpoints: []lb.EndpointConfig{
			{IP: "127.0.0.1", Port: backendAddr.Port},
		},
	}
	sel, err := lb.DetectSelector(cfg)
	if err != nil {
		t.Fatalf("DetectSelector: %v", err)
	}
	timeouts := resilience.NewTimeoutManager(resilience.DefaultTimeoutConfig())
	conn := connector.New(sel, timeouts, nil)
	executor := pool.NewGoroutinePool(pool.GoroutinePoolConfig{MaxWorkers: 4, QueueSize: 16})

	port := freePort(t)
	a, err := New(port, IPv4, conn, executor, nil, 2*time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(context.Background()) }()

	// Acceptor.Run binds the listener asynchronously; retry dial briefly.
	var clientConn net.Conn
	for i := 0; i < 50; i++ {
		clientConn, err = net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if clientConn == nil {
		t.Fatalf("dial acceptor: %v", err)
	}

	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(3 * time.Second):
		t.Fatal("backend never received a forwarded connection")
	}
	clientConn.Close()

	a.Stop()
	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
