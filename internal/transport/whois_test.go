package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveWhois answers every connection with reply and records the query lines.
func serveWhois(t *testing.T, reply string) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	queries := make(chan string, 16)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, _ := bufio.NewReader(c).ReadString('\n')
				queries <- line
				_, _ = c.Write([]byte(reply))
			}(conn)
		}
	}()
	return ln.Addr().String(), queries
}

func TestWhoisClientQuery(t *testing.T) {
	addr, queries := serveWhois(t, "No match for domain \"ABCD.COM\".\r\n")

	c := &WhoisClient{Timeout: 2 * time.Second}
	text, err := c.Query(context.Background(), addr, "abcd.com")
	require.NoError(t, err)
	assert.Contains(t, text, "No match for domain")

	select {
	case q := <-queries:
		assert.Contains(t, q, "abcd.com")
		assert.Contains(t, q, "\r\n")
	case <-time.After(time.Second):
		t.Fatal("server never saw the query")
	}
}

func TestWhoisClientConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := &WhoisClient{Timeout: time.Second}
	_, err = c.Query(context.Background(), addr, "abcd.com")
	require.Error(t, err)
}

func TestWhoisClientBadAddress(t *testing.T) {
	c := &WhoisClient{}
	_, err := c.Query(context.Background(), "no-port", "abcd.com")
	require.Error(t, err)
}
