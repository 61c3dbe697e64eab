package provider

import (
	"fmt"

	"github.com/gwpay/connector/internal/application"
)

// Registry maps provider names to their clients. Selecting a client by the
// name on a charge's pinned credential is the only provider-name branching
// in the system.
type Registry struct {
	clients map[string]application.ProviderClient
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]application.ProviderClient)}
}

func (r *Registry) Register(name string, client application.ProviderClient) {
	r.clients[name] = client
}

func (r *Registry) ClientFor(name string) (application.ProviderClient, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("no client registered for payment provider %q", name)
	}
	return client, nil
}
