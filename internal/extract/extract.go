// Package extract holds the text extraction providers shipped with the
// media filter. Providers register in init, much like image formats do,
// and Discovered enumerates them in registration order.
package extract

import (
	"fmt"
	"sync"

	"github.com/tendant/simple-content-mediafilter/internal/capability"
)

var (
	providersMu sync.Mutex
	providers   []capability.Provider
)

func init() {
	Register(NewPlain())
	Register(NewHTML())
	Register(NewMarkdown())
}

// Register makes a provider discoverable. It panics if a provider with the
// same name is already registered.
func Register(p capability.Provider) {
	providersMu.Lock()
	defer providersMu.Unlock()

	if p == nil {
		panic("extract: Register provider is nil")
	}
	for _, existing := range providers {
		if existing.Name() == p.Name() {
			panic(fmt.Sprintf("extract: Register called twice for provider %s", p.Name()))
		}
	}
	providers = append(providers, p)
}

// Discovered returns the registered providers in registration order
func Discovered() []capability.Provider {
	providersMu.Lock()
	defer providersMu.Unlock()

	out := make([]capability.Provider, len(providers))
	copy(out, providers)
	return out
}
