package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"eventtix/internal/services/gateway/stripe"
	"eventtix/internal/services/gateway/wave"
	"eventtix/internal/status"
)

// Factory implements GatewayFactory.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) CreateGateway(ctx context.Context, provider Provider, config any) (PaymentGateway, error) {
	switch provider {
	case ProviderStripe:
		stripeConfig, ok := config.(*stripe.Config)
		if !ok {
			return nil, fmt.Errorf("invalid stripe config type, expected *stripe.Config")
		}
		return NewStripeAdapter(ctx, stripeConfig)

	case ProviderWave:
		waveConfig, ok := config.(*wave.Config)
		if !ok {
			return nil, fmt.Errorf("invalid wave config type, expected *wave.Config")
		}
		return NewWaveAdapter(ctx, waveConfig)

	default:
		return nil, fmt.Errorf("%w: %s", status.ErrUnsupportedProvider, provider)
	}
}

func (f *Factory) SupportedProviders() []Provider {
	return []Provider{ProviderStripe, ProviderWave}
}

// Registry holds the configured gateway instances keyed by provider.
type Registry struct {
	gateways map[Provider]PaymentGateway
	factory  GatewayFactory
	primary  Provider
}

func NewRegistry(factory GatewayFactory) *Registry {
	return &Registry{
		gateways: make(map[Provider]PaymentGateway),
		factory:  factory,
	}
}

// Register creates and stores a gateway. The first registered provider
// becomes the primary.
func (r *Registry) Register(ctx context.Context, provider Provider, config any) error {
	gw, err := r.factory.CreateGateway(ctx, provider, config)
	if err != nil {
		return fmt.Errorf("failed to create %s gateway: %w", provider, err)
	}

	r.gateways[provider] = gw
	if r.primary == "" {
		r.primary = provider
	}
	return nil
}

// RegisterGateway stores an already constructed gateway. Tests use this to
// inject fakes.
func (r *Registry) RegisterGateway(gw PaymentGateway) {
	r.gateways[gw.GetProvider()] = gw
	if r.primary == "" {
		r.primary = gw.GetProvider()
	}
}

func (r *Registry) Get(provider Provider) (PaymentGateway, error) {
	gw, exists := r.gateways[provider]
	if !exists {
		return nil, fmt.Errorf("%w: %s not registered", status.ErrUnsupportedProvider, provider)
	}
	return gw, nil
}

func (r *Registry) Primary() (PaymentGateway, error) {
	if r.primary == "" {
		return nil, fmt.Errorf("%w: no primary gateway configured", status.ErrUnsupportedProvider)
	}
	return r.Get(r.primary)
}

func (r *Registry) Available() []Provider {
	providers := make([]Provider, 0, len(r.gateways))
	for provider := range r.gateways {
		providers = append(providers, provider)
	}
	return providers
}

// Close shuts down every registered gateway, logging instead of stopping
// on individual failures.
func (r *Registry) Close(ctx context.Context) error {
	for provider, gw := range r.gateways {
		if err := gw.Close(ctx); err != nil {
			slog.Error("closing gateway", "provider", provider, "error", err)
		}
	}
	return nil
}
