package consul

import (
	"context"
	"fmt"

	papi "github.com/tassel-gaurav/phonetic-justice/internal/pkg/pronouncer/api"
)

// Routed is a pronunciation backend that selects an active consul
// registered backend on every call
type Routed struct {
	provider *Provider
}

// NewRouted wraps the provider into the backend interface
func NewRouted(provider *Provider) (*Routed, error) {
	if provider == nil {
		return nil, fmt.Errorf("no provider")
	}
	return &Routed{provider: provider}, nil
}

func (r *Routed) Pronounce(ctx context.Context, name, voiceID string) (*papi.Output, error) {
	pr, _, err := r.pick()
	if err != nil {
		return nil, err
	}
	return pr.Pronounce(ctx, name, voiceID)
}

func (r *Routed) PronounceAll(ctx context.Context, name string) (*papi.MultiOutput, error) {
	pr, _, err := r.pick()
	if err != nil {
		return nil, err
	}
	return pr.PronounceAll(ctx, name)
}

func (r *Routed) PronounceGeneral(ctx context.Context, name string) (*papi.MultiOutput, error) {
	pr, _, err := r.pick()
	if err != nil {
		return nil, err
	}
	return pr.PronounceGeneral(ctx, name)
}

func (r *Routed) Voices(ctx context.Context) ([]papi.Voice, error) {
	pr, _, err := r.pick()
	if err != nil {
		return nil, err
	}
	return pr.Voices(ctx)
}

func (r *Routed) pick() (papi.Pronouncer, string, error) {
	pr, srv, err := r.provider.Get("", true)
	if err != nil {
		return nil, "", err
	}
	if pr == nil {
		return nil, "", fmt.Errorf("no active backend")
	}
	return pr, srv, nil
}
