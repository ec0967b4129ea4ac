// Package backend hosts the device driver registry. Drivers register a
// factory under a name from their package init; applications open a device
// by name, or take the best available one by priority.
package backend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/forge"
)

// Well-known driver names.
const (
	// DriverWGPU is the hardware-accelerated WebGPU driver.
	DriverWGPU = "wgpu"

	// DriverNull is the in-memory recording driver used for tests and
	// headless runs.
	DriverNull = "null"
)

// Registry errors.
var (
	// ErrNotRegistered is returned by Open for an unknown driver name.
	ErrNotRegistered = errors.New("backend: driver not registered")

	// ErrNoDriver is returned by OpenDefault when nothing is registered.
	ErrNoDriver = errors.New("backend: no driver available")
)

// Factory creates a new device instance.
type Factory func() (forge.Device, error)

// registry holds registered drivers.
var (
	registryMu sync.RWMutex
	drivers    = make(map[string]Factory)

	// Priority order for default selection (first available wins).
	// Hardware before the in-memory fallback.
	driverPriority = []string{DriverWGPU, DriverNull}
)

// Register registers a driver factory with the given name.
// This is typically called from init() functions in driver packages.
// If a driver with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	drivers[name] = factory
}

// Unregister removes a driver from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(drivers, name)
}

// Available returns a list of registered driver names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a driver with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := drivers[name]
	return ok
}

// Open creates a device from the named driver.
func Open(name string) (forge.Device, error) {
	registryMu.RLock()
	factory, ok := drivers[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return factory()
}

// OpenDefault opens the best available driver by priority, falling back
// through the priority list if a driver fails to initialize (for example,
// no GPU present).
func OpenDefault() (forge.Device, error) {
	registryMu.RLock()
	var candidates []Factory
	for _, name := range driverPriority {
		if factory, ok := drivers[name]; ok {
			candidates = append(candidates, factory)
		}
	}
	registryMu.RUnlock()

	var firstErr error
	for _, factory := range candidates {
		dev, err := factory()
		if err == nil {
			return dev, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDriver, firstErr)
	}
	return nil, ErrNoDriver
}
