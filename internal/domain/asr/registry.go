package asr

import (
	"fmt"
	"sort"
	"sync"

	platformerrors "captionkit-server-go/internal/platform/errors"
)

// Factory builds one adapter instance for one session.
type Factory func(params Params) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a provider factory available under name. Called from
// adapter package init functions.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Create builds the adapter registered under name.
func Create(name string, params Params) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, platformerrors.New(platformerrors.KindProvider, "asr.create",
			fmt.Sprintf("unknown provider %q", name))
	}

	provider, err := factory(params)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "asr.create",
			fmt.Sprintf("failed to build provider %q", name), err)
	}
	return provider, nil
}

// Registered lists the registered provider names, sorted.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
