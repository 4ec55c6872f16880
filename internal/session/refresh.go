package session

import (
	"context"
	"time"
)

// Start launches the background refresh loop: one fetch immediately, then
// one per refresh interval and one after every account or network change.
// Calling Start while the loop runs is a no-op.
func (p *Provider) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(ctx, p.done)
}

// Stop cancels the refresh loop and waits for it to exit.
func (p *Provider) Stop() {
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Provider) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.FetchBalance(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.refresh:
		}
		if ctx.Err() != nil {
			return
		}
		p.FetchBalance(ctx)
	}
}
