package core

import (
	"context"
	"net"
	"sync"
	"time"
)

// maxConcurrentProbes bounds the dials a probe keeps in flight.
const maxConcurrentProbes = 8

// DialFunc establishes a network connection.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProbeResult records whether a target accepted a connection.
type ProbeResult struct {
	Addr      string
	Reachable bool
	Err       error
}

// ProbeTargets dials every address concurrently and returns results in
// the same order as the input slice.  Connections are closed at once;
// nothing is sent.
func ProbeTargets(ctx context.Context, addrs []string, timeout time.Duration, dial DialFunc) []ProbeResult {
	results := make([]ProbeResult, len(addrs))
	sem := make(chan struct{}, maxConcurrentProbes)
	var wg sync.WaitGroup

	for i, addr := range addrs {
		wg.Add(1)
		go func(idx int, a string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			conn, err := dial(probeCtx, "tcp", a)
			if err != nil {
				results[idx] = ProbeResult{Addr: a, Err: err}
				return
			}
			conn.Close()
			results[idx] = ProbeResult{Addr: a, Reachable: true}
		}(i, addr)
	}

	wg.Wait()
	return results
}
