package subproc

import (
	"log/slog"
	"os"
	"sync"

	"github.com/haasonsaas/relay/internal/procattr"
)

// ProcessRegistry tracks every in-flight subprocess so shutdown can
// force-kill the lot. It is explicitly owned and injected, not ambient
// state; tests get a fresh registry or call Reset.
type ProcessRegistry struct {
	mu    sync.Mutex
	procs map[string]*os.Process
}

// NewProcessRegistry creates an empty registry.
func NewProcessRegistry() *ProcessRegistry {
	return &ProcessRegistry{procs: make(map[string]*os.Process)}
}

// Add tracks a running process under id.
func (r *ProcessRegistry) Add(id string, p *os.Process) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[id] = p
}

// Remove stops tracking id. Called when the process exits normally.
func (r *ProcessRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, id)
}

// Len returns the number of tracked processes.
func (r *ProcessRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// KillAll force-kills every tracked process group and returns how many were
// signalled. The runner starts each subprocess as a group leader, so the
// group kill reaches forked descendants too. Best-effort: kill errors are
// logged and skipped.
func (r *ProcessRegistry) KillAll() int {
	r.mu.Lock()
	procs := r.procs
	r.procs = make(map[string]*os.Process)
	r.mu.Unlock()

	killed := 0
	for id, p := range procs {
		if err := procattr.KillGroup(p); err != nil {
			if err := p.Kill(); err != nil {
				slog.Default().Warn("kill subprocess failed", "component", "subproc", "proc", id)
				continue
			}
		}
		killed++
	}
	return killed
}

// Reset drops all tracked processes without killing them. Test hook.
func (r *ProcessRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs = make(map[string]*os.Process)
}
