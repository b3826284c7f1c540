// Package conduit is a pluggable data-access layer: application services
// issue typed calls through network protocols (request/response and
// streaming) intercepted by an ordered chain of plugins that can observe,
// transform, short-circuit, or recover from requests.
//
// The Registry type is the main entry point: create one with New, apply
// configuration with Initialize, register services with Register, and
// manage globally visible plugins with Use / UseBefore / UseAfter /
// RemovePlugin. Services embed BaseService, which binds a rest.Protocol and
// an sse.Protocol to the service's private plugin scope.
//
// Built-in plugins live in the plugins/* packages and can be enabled from
// config by importing them with a blank import
// (e.g. _ "github.com/conduit-labs/conduit/plugins/logger").
package conduit

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/conduit-labs/conduit/internal/logging"
	"github.com/conduit-labs/conduit/plugin"
)

// ErrServiceNotFound reports a Get for a key that was never registered.
// This is a programming error, not a recoverable runtime condition.
var ErrServiceNotFound = errors.New("conduit: service not found")

// ServiceKey identifies a service kind. The registry stores exactly one
// instance per key; a service type returns a constant.
type ServiceKey string

// Service is the contract the registry manages. Most implementations embed
// BaseService, which provides Init and Close, and add typed call methods.
type Service interface {
	Key() ServiceKey
	Init(deps Deps) error
	Close() error
}

// Deps is what the registry injects into a service at registration time.
type Deps struct {
	// Name is the service key as a plain string, used for log and metric
	// labels.
	Name string
	// Globals returns the registry's current global plugin list. It reads
	// the live list, so global registrations made after this service was
	// registered remain visible to it.
	Globals plugin.GlobalsFunc
	// Client is the transport for request/response calls.
	Client *http.Client
	// StreamClient is the transport for streaming connections. It carries
	// no global timeout.
	StreamClient *http.Client
	// Config is the merged registry-default and per-service configuration.
	Config ServiceConfig
}

// Registry is the authoritative mapping from service keys to their single
// instances, and the owner of the global plugin registration. It is an
// explicit object with a documented lifecycle (New, Initialize, Reset), not
// ambient global state; tests create isolated registries freely.
type Registry struct {
	mu           sync.RWMutex
	cfg          Config
	client       *http.Client
	streamClient *http.Client
	services     map[ServiceKey]Service
	globals      *plugin.Set
}

// New creates an empty registry with default configuration.
func New() *Registry {
	return &Registry{
		client:       &http.Client{Timeout: 30 * time.Second},
		streamClient: &http.Client{},
		services:     make(map[ServiceKey]Service),
		globals:      plugin.NewSet(),
	}
}

// Initialize validates and applies a configuration and constructs any
// config-declared plugins through the factory registry. Services registered
// afterwards pick up the configured base URLs and headers.
func (r *Registry) Initialize(cfg Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	r.mu.Lock()
	r.cfg = cfg
	if cfg.TimeoutSeconds > 0 {
		r.client = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	r.mu.Unlock()

	for _, pc := range cfg.Plugins {
		if !pc.Enabled {
			continue
		}
		factory, ok := plugin.GetFactory(pc.Name)
		if !ok {
			return fmt.Errorf("unknown plugin: %s", pc.Name)
		}
		p, err := factory(pc.Config)
		if err != nil {
			return fmt.Errorf("plugin %s init failed: %w", pc.Name, err)
		}
		if err := r.Use(p); err != nil {
			return err
		}
	}
	return nil
}

// Register stores the service under its key and injects its dependencies.
// Registering a key twice overwrites the mapping with the new instance;
// services are expected to self-register once.
func (r *Registry) Register(svc Service) error {
	deps := Deps{
		Name:         string(svc.Key()),
		Globals:      r.globals.All,
		Client:       r.client,
		StreamClient: r.streamClient,
		Config:       r.serviceConfig(svc.Key()),
	}
	if err := svc.Init(deps); err != nil {
		return fmt.Errorf("initialize service %s: %w", svc.Key(), err)
	}

	r.mu.Lock()
	r.services[svc.Key()] = svc
	r.mu.Unlock()

	logging.Logger.Debug("service registered", "service", string(svc.Key()))
	return nil
}

// Get returns the registered instance for the key, or ErrServiceNotFound.
func (r *Registry) Get(key ServiceKey) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, key)
	}
	return svc, nil
}

// Has reports whether a service is registered under the key.
func (r *Registry) Has(key ServiceKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[key]
	return ok
}

// Use appends plugins to the global list, visible to every service that
// does not exclude their tokens.
func (r *Registry) Use(plugins ...plugin.Plugin) error {
	return r.globals.Add(plugins...)
}

// UseBefore inserts p before the first global entry with the target token.
func (r *Registry) UseBefore(p plugin.Plugin, target plugin.Token) error {
	return r.globals.AddBefore(p, target)
}

// UseAfter inserts p after the first global entry with the target token.
func (r *Registry) UseAfter(p plugin.Plugin, target plugin.Token) error {
	return r.globals.AddAfter(p, target)
}

// RemovePlugin destroys and removes a global plugin.
func (r *Registry) RemovePlugin(target plugin.Token) error {
	return r.globals.Remove(target)
}

// HasPlugin reports whether a token is globally registered.
func (r *Registry) HasPlugin(target plugin.Token) bool {
	return r.globals.Has(target)
}

// Plugin returns the global instance for a token; a missing token is not an
// error.
func (r *Registry) Plugin(target plugin.Token) (plugin.Plugin, bool) {
	return r.globals.Get(target)
}

// Plugins returns the global list in registration order.
func (r *Registry) Plugins() []plugin.Plugin {
	return r.globals.All()
}

// Reset tears down every owned service and every global plugin, then clears
// all storage, restoring a pristine state between independent test runs.
// Resetting an already-reset registry is a no-op.
func (r *Registry) Reset() {
	r.mu.Lock()
	services := r.services
	r.services = make(map[ServiceKey]Service)
	r.mu.Unlock()

	for key, svc := range services {
		if err := svc.Close(); err != nil {
			logging.Logger.Warn("service close failed", "service", string(key), "error", err.Error())
		}
	}
	r.globals.Clear()
}

// serviceConfig merges the registry defaults with the per-service override.
func (r *Registry) serviceConfig(key ServiceKey) ServiceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := ServiceConfig{
		BaseURL: r.cfg.BaseURL,
		Headers: maps.Clone(r.cfg.Headers),
	}
	if out.Headers == nil {
		out.Headers = make(map[string]string)
	}
	if sc, ok := r.cfg.Services[string(key)]; ok {
		if sc.BaseURL != "" {
			out.BaseURL = sc.BaseURL
		}
		maps.Copy(out.Headers, sc.Headers)
	}
	return out
}
