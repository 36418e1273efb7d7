package pacs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/radops/pacsfind/pkg/config"
)

// QueryAll fans one Orchestrator run out per server and joins at a barrier.
// Each worker owns its slot in the result slice, so no synchronization
// beyond the WaitGroup is needed, and the aggregate keeps the configured
// server order. A server's total failure is recorded on its ServerResult
// and never blocks the others.
func QueryAll(ctx context.Context, finder Finder, filter ModalityFilter, servers []config.Server, windows []Window, logger *slog.Logger) []ServerResult {
	results := make([]ServerResult, len(servers))

	var wg sync.WaitGroup
	for i, srv := range servers {
		wg.Add(1)
		go func(i int, srv config.Server) {
			defer wg.Done()
			o := &Orchestrator{Finder: finder, Filter: filter, Logger: logger}
			results[i] = o.Run(ctx, srv, windows)
		}(i, srv)
	}
	wg.Wait()

	return results
}
