package cli

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/dropzone/internal/client/services"
)

const progressStep = 25

// progressPrinter reports upload progress in steps so a fast stream of
// updates does not flood the terminal.
type progressPrinter struct {
	mu   sync.Mutex
	last map[string]int
}

func newProgressPrinter() *progressPrinter {
	return &progressPrinter{last: map[string]int{}}
}

func (p *progressPrinter) observe(s services.Snapshot) {
	names := make(map[string]string, len(s.Progress))
	for _, f := range s.Files {
		if f.UploadKey != "" {
			names[f.UploadKey] = f.DisplayName
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for key, pct := range s.Progress {
		step := pct / progressStep
		if last, ok := p.last[key]; ok && step <= last {
			continue
		}
		p.last[key] = step
		if name, ok := names[key]; ok {
			printlnFn(fmt.Sprintf("  %s: %d%%", name, pct))
		}
	}
	for key := range p.last {
		if _, ok := s.Progress[key]; !ok {
			delete(p.last, key)
		}
	}
}
