package job

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goran-ethernal/ChainLedger/internal/logger"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
)

// Factory is a function that creates a new job instance.
type Factory func(cfg config.JobConfig, deps Deps) (Job, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register registers a job factory with the given type name.
// This is typically called in init() functions of job packages.
// The type name is case-insensitive and will be stored in lowercase.
func Register(jobType string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	name := strings.ToLower(jobType)
	if _, exists := registry[name]; exists {
		logger.GetDefaultLogger().Infof("job type %s already in job registry. "+
			"It will be overwritten.", name)
	}

	registry[name] = factory
}

// GetFactory returns the factory for the given job type.
// Returns nil if the type is not registered.
// The lookup is case-insensitive.
func GetFactory(jobType string) Factory {
	mu.RLock()
	defer mu.RUnlock()
	return registry[strings.ToLower(jobType)]
}

// ListRegistered returns the sorted list of all registered job types.
func ListRegistered() []string {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)

	return types
}

// Create creates a new job instance using the factory registered for cfg.Type.
// Returns an error if the type is not registered or if creation fails.
func Create(cfg config.JobConfig, deps Deps) (Job, error) {
	factory := GetFactory(cfg.Type)
	if factory == nil {
		return nil, fmt.Errorf("unknown job type: %s (registered types: %v)", cfg.Type, ListRegistered())
	}

	j, err := factory(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create job %s: %w", cfg.Name, err)
	}

	return j, nil
}
