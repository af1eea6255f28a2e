package generator

import (
	"fmt"
	"sort"
)

// Registry maps generator names to generator factory functions
var Registry = map[string]func() Generator{
	"measurements": func() Generator { return &MeasurementGenerator{} },
	"dirty":        func() Generator { return &MeasurementGenerator{MalformedRate: 0.05} },
}

// Get returns a generator by name
func Get(name string) (Generator, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return factory(), nil
}

// List returns all available generator names
func List() []string {
	var names []string
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
