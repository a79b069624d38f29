package manager

import (
	"fmt"
	"sort"
	"sync"

	"unipkg/internal/config"
	"unipkg/pkg/manager/detector"
)

// Registry manages all available package managers and provides unified access.
type Registry struct {
	managers map[string]Manager
	order    []string
	sysInfo  *detector.SystemInfo
	cfg      *config.Config
	mu       sync.RWMutex
}

// NewRegistry creates a new package manager registry.
func NewRegistry(cfg *config.Config) *Registry {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Registry{
		managers: make(map[string]Manager),
		order:    cfg.General.ManagerOrder,
		cfg:      cfg,
	}
}

// Register adds a manager to the registry. Managers disabled in the
// configuration are ignored.
func (r *Registry) Register(mgr Manager) {
	if r.cfg.GetManagerConfig(mgr.Name()).Disabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[mgr.Name()] = mgr
}

// Detect identifies the host system. When the configuration names no
// manager order, the order detected for the system is used.
func (r *Registry) Detect() error {
	info, err := detector.Detect()
	if err != nil {
		return fmt.Errorf("failed to detect system: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sysInfo = info
	if len(r.cfg.General.ManagerOrder) == 0 {
		r.order = info.DefaultOrder()
	}
	return nil
}

// Get returns a specific manager by name.
func (r *Registry) Get(name string) (Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mgr, ok := r.managers[name]
	return mgr, ok
}

// Available returns all available (installed) package managers in priority order.
func (r *Registry) Available() []Manager {
	return r.filter(func(m Manager) bool { return m.IsAvailable() })
}

// AvailableByType returns available managers of a specific type.
func (r *Registry) AvailableByType(t ManagerType) []Manager {
	return r.filter(func(m Manager) bool { return m.IsAvailable() && m.Type() == t })
}

// All returns all registered managers (including unavailable ones) in priority order.
func (r *Registry) All() []Manager {
	return r.filter(func(Manager) bool { return true })
}

func (r *Registry) filter(keep func(Manager) bool) []Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var managers []Manager
	for _, mgr := range r.managers {
		if keep(mgr) {
			managers = append(managers, mgr)
		}
	}

	r.sortByPriority(managers)
	return managers
}

// SystemInfo returns the detected system information.
func (r *Registry) SystemInfo() *detector.SystemInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sysInfo
}

// GetManagerForSource returns the manager for a name or a type.
// Source can be a manager name (e.g., "winget") or a type (e.g., "native").
func (r *Registry) GetManagerForSource(source string) (Manager, error) {
	if mgr, ok := r.Get(source); ok {
		if !mgr.IsAvailable() {
			return nil, fmt.Errorf("%w: %s", ErrManagerUnavailable, source)
		}
		return mgr, nil
	}

	var t ManagerType
	switch source {
	case "native", "system":
		t = TypeNative
	case "universal":
		t = TypeUniversal
	case "language", "lang":
		t = TypeLanguage
	default:
		return nil, fmt.Errorf("%w: %s", ErrManagerNotFound, source)
	}

	managers := r.AvailableByType(t)
	if len(managers) == 0 {
		return nil, fmt.Errorf("%w: no %s package manager", ErrManagerUnavailable, t)
	}
	return managers[0], nil
}

// sortByPriority sorts managers by the configured or detected order.
// Managers missing from the order come last, by name.
func (r *Registry) sortByPriority(managers []Manager) {
	priority := make(map[string]int, len(r.order))
	for i, name := range r.order {
		priority[name] = i
	}

	sort.SliceStable(managers, func(i, j int) bool {
		pi := r.getPriority(managers[i], priority)
		pj := r.getPriority(managers[j], priority)
		if pi != pj {
			return pi < pj
		}
		return managers[i].Name() < managers[j].Name()
	})
}

// getPriority returns the priority index for a manager, by name first, then by type.
func (r *Registry) getPriority(mgr Manager, priorityMap map[string]int) int {
	if p, ok := priorityMap[mgr.Name()]; ok {
		return p
	}
	if p, ok := priorityMap[string(mgr.Type())]; ok {
		return p
	}
	return 999
}
