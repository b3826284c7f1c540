package conduit

import (
	"github.com/conduit-labs/conduit/plugin"
	"github.com/conduit-labs/conduit/rest"
	"github.com/conduit-labs/conduit/sse"
)

// BaseService is the embeddable scaffold for registry-managed services. It
// owns the service's private plugin scope and exclusion set and binds one
// request/response protocol and one streaming protocol to that scope.
//
// Embed it and implement Key plus the typed call methods:
//
//	type TicketService struct {
//		conduit.BaseService
//	}
//
//	func (s *TicketService) Key() conduit.ServiceKey { return "tickets" }
//
//	func (s *TicketService) List(ctx context.Context) ([]Ticket, error) {
//		return rest.Do[[]Ticket](ctx, s.REST(), plugin.MethodGet, "/tickets", nil, nil)
//	}
//
// Services that override Init must call BaseService.Init first.
type BaseService struct {
	scope  *plugin.Scope
	legacy *plugin.LegacyChain
	rest   *rest.Protocol
	stream *sse.Protocol
}

// Init builds the service's scope and protocol bindings from the injected
// dependencies. The registry calls it once at registration.
func (b *BaseService) Init(deps Deps) error {
	b.scope = plugin.NewScope(deps.Globals)
	b.legacy = plugin.NewLegacyChain()
	b.rest = rest.New(rest.Config{
		Name:    deps.Name,
		BaseURL: deps.Config.BaseURL,
		Headers: deps.Config.Headers,
		Client:  deps.Client,
		Scope:   b.scope,
		Legacy:  b.legacy,
	})
	b.stream = sse.New(sse.Config{
		Name:    deps.Name,
		BaseURL: deps.Config.BaseURL,
		Headers: deps.Config.Headers,
		Client:  deps.StreamClient,
		Scope:   b.scope,
	})
	return nil
}

// Close closes every open streaming connection and destroys the service's
// private plugins.
func (b *BaseService) Close() error {
	if b.stream != nil {
		b.stream.Close()
	}
	if b.rest != nil {
		b.rest.Close()
	}
	return nil
}

// REST returns the request/response protocol binding.
func (b *BaseService) REST() *rest.Protocol { return b.rest }

// Stream returns the streaming protocol binding.
func (b *BaseService) Stream() *sse.Protocol { return b.stream }

// Legacy returns the deprecated string-keyed hook chain.
func (b *BaseService) Legacy() *plugin.LegacyChain { return b.legacy }

// Use registers plugins in this service's private scope.
func (b *BaseService) Use(plugins ...plugin.Plugin) error {
	return b.scope.Use(plugins...)
}

// UseBefore inserts p before the first private entry with the target token.
func (b *BaseService) UseBefore(p plugin.Plugin, target plugin.Token) error {
	return b.scope.UseBefore(p, target)
}

// UseAfter inserts p after the first private entry with the target token.
func (b *BaseService) UseAfter(p plugin.Plugin, target plugin.Token) error {
	return b.scope.UseAfter(p, target)
}

// RemovePlugin destroys and removes a plugin from the private scope.
func (b *BaseService) RemovePlugin(target plugin.Token) error {
	return b.scope.Remove(target)
}

// HasPlugin reports whether the token is visible to this service.
func (b *BaseService) HasPlugin(target plugin.Token) bool {
	return b.scope.Has(target)
}

// Plugin returns the instance the chains would run for the token: private
// registration first, then the exclusion-filtered global list.
func (b *BaseService) Plugin(target plugin.Token) (plugin.Plugin, bool) {
	return b.scope.Get(target)
}

// Plugins returns the merged chain execution order for this service.
func (b *BaseService) Plugins() []plugin.Plugin {
	return b.scope.Merged()
}

// Exclude suppresses global plugins with the given tokens for this service
// only.
func (b *BaseService) Exclude(tokens ...plugin.Token) {
	b.scope.Exclude(tokens...)
}

// Excluded returns this service's excluded tokens.
func (b *BaseService) Excluded() []plugin.Token {
	return b.scope.Excluded()
}
