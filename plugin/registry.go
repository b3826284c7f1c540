package plugin

// Factory builds a plugin from a config map. Built-in plugins register a
// factory from their package init so they can be constructed by name from a
// loaded configuration file.
type Factory func(config map[string]interface{}) (Plugin, error)

// factoryRegistry is the process-wide registry of plugin factories.
var factoryRegistry = map[string]Factory{}

// RegisterFactory registers a plugin factory by name.
func RegisterFactory(name string, factory Factory) {
	factoryRegistry[name] = factory
}

// GetFactory returns a plugin factory by name.
func GetFactory(name string) (Factory, bool) {
	f, ok := factoryRegistry[name]
	return f, ok
}

// RegisteredFactories returns the names of all registered plugin factories.
func RegisteredFactories() []string {
	names := make([]string, 0, len(factoryRegistry))
	for name := range factoryRegistry {
		names = append(names, name)
	}
	return names
}
