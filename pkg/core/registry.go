package core

import (
	"sort"
	"sync"
)

// TaskInfo is an inspection snapshot of one task.
type TaskInfo struct {
	ID       string `json:"id"`
	Running  bool   `json:"running"`
	Paused   bool   `json:"paused"`
	Stopped  bool   `json:"stopped"`
	Finished bool   `json:"finished"`
	Steps    uint64 `json:"steps"`
}

// snapshotter is implemented by anything the registry can inspect.
type snapshotter interface {
	ID() string
	Info() TaskInfo
}

// Registry tracks live tasks for inspection. Tasks register at construction
// time via the WithRegistry option; retired tasks stay visible so their
// final state can be read.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]snapshotter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]snapshotter)}
}

func (r *Registry) register(s snapshotter) {
	r.mu.Lock()
	r.tasks[s.ID()] = s
	r.mu.Unlock()
}

// Remove drops a task from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.tasks, id)
	r.mu.Unlock()
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Snapshot returns the current state of every registered task, ordered by
// task ID for stable output.
func (r *Registry) Snapshot() []TaskInfo {
	r.mu.RLock()
	infos := make([]TaskInfo, 0, len(r.tasks))
	for _, t := range r.tasks {
		infos = append(infos, t.Info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
