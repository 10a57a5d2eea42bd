package connector

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
	"github.com/therealutkarshpriyadarshi/balance/pkg/lb"
	"github.com/therealutkarshpriyadarshi/balance/pkg/resilience"
	"github.com/therealutkarshpriyadarshi/balance/pkg/urlvalue"
)

// TestConnectorScenarioS4 reproduces spec.md scenario S4: a
// round-robin of two backends where the first refuses; the connector
// excludes it and recurses onto the second.
func TestConnectorScenarioS4(t *testing.T) {
	refusingLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	refusingAddr := refusingLn.Addr().(*net.TCPAddr)
	refusingLn.Close() // closed immediately: connects to this port refuse

	goodLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer goodLn.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := goodLn.Accept()
		if err == nil {
			accepted <- c
		}
	}()
	goodAddr := goodLn.Addr().(*net.TCPAddr)

	cfg := lb.Config{
		Algorithm: "round_robin",
		Endpoints: []lb.EndpointConfig{
			{IP: "127.0.0.1", Port: refusingAddr.Port},
			{IP: "127.0.0.1", Port: goodAddr.Port},
		},
	}
	sel, err := lb.DetectSelector(cfg)
	if err != nil {
		t.Fatalf("DetectSelector: %v", err)
	}

	timeouts := resilience.NewTimeoutManager(resilience.TimeoutConfig{ConnectTimeout: 2 * time.Second})
	c := New(sel, timeouts, nil)

	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	done := make(chan struct{})
	go func() {
		c.MakeAndRunSession(context.Background(), serverSide)
		close(done)
	}()

	select {
	case conn := <-accepted:
		conn.Close()
	case <-time.After(3 * time.Second):
		t.Fatal("good backend never accepted a connection")
	}

	clientSide.Close()
	<-done
}

// TestConnectURLBackendRefusalNotRetried reproduces
// original_source/src/lb/tcp/connector.cpp's asymmetry for URL backends:
// a refusal from the resolver itself is retryable, but once resolution
// succeeds, a refusal connecting to any individual resolved address is
// just another address failure — connect must exhaust the whole list
// and return ErrOtherConnect, never errConnectionRefused, so the caller
// never excludes+recurses on it.
func TestConnectURLBackendRefusalNotRetried(t *testing.T) {
	refusingLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	refusingPort := refusingLn.Addr().(*net.TCPAddr).Port
	refusingLn.Close() // closed immediately: connects to this port refuse

	c := New(nil, resilience.NewTimeoutManager(resilience.TimeoutConfig{ConnectTimeout: 2 * time.Second}), nil)

	u := urlvalue.URL{Protocol: "http", Hostname: "localhost", Port: refusingPort, Path: "/"}
	b := backend.NewURL(u)

	_, err = c.connect(context.Background(), b)
	if err == nil {
		t.Fatal("expected an error dialing a refusing port")
	}
	if errors.Is(err, errConnectionRefused) {
		t.Fatalf("a resolved-address refusal must not surface as errConnectionRefused, got %v", err)
	}
	if !errors.Is(err, ErrOtherConnect) {
		t.Fatalf("expected ErrOtherConnect, got %v", err)
	}
}
