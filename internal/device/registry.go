package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides controller and device management with caching and
// thread safety. It wraps a Repository and adds in-memory caches for
// fast lookups; command routing during playback hits ControllerFor on
// every action step, so it must never touch the database.
//
// The caches are populated on startup via RefreshCache() and kept in
// sync by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	cacheMu     sync.RWMutex
	controllers map[string]*Controller // by controller id
	devices     map[string]*Device     // by device id

	logger Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:        repo,
		controllers: make(map[string]*Controller),
		devices:     make(map[string]*Device),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all controllers and devices from the repository.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	controllers, err := r.repo.ListControllers(ctx)
	if err != nil {
		return fmt.Errorf("loading controllers: %w", err)
	}
	devices, err := r.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.controllers = make(map[string]*Controller, len(controllers))
	for i := range controllers {
		c := controllers[i]
		r.controllers[c.ID] = c.DeepCopy()
	}
	r.devices = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.devices[d.ID] = d.DeepCopy()
	}

	r.logger.Info("device cache refreshed",
		"controllers", len(controllers),
		"devices", len(devices),
	)
	return nil
}

// ControllerFor returns the controller id that drives the given device.
// Satisfies the gateway's routing contract; served from cache only.
func (r *Registry) ControllerFor(deviceID string) (string, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return "", ErrNotFound
	}
	return d.ControllerID, nil
}

// ─── Controllers ────────────────────────────────────────────────────────────

// GetController retrieves a controller by ID.
// The returned controller is a deep copy; callers can safely modify it.
func (r *Registry) GetController(_ context.Context, id string) (*Controller, error) {
	r.cacheMu.RLock()
	cached, ok := r.controllers[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrControllerNotFound
}

// ListControllers retrieves all controllers from the cache.
// Returns deep copies sorted by name for deterministic ordering.
func (r *Registry) ListControllers(_ context.Context) ([]Controller, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	controllers := make([]Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		controllers = append(controllers, *c.DeepCopy())
	}
	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].Name < controllers[j].Name
	})
	return controllers, nil
}

// CreateController validates, persists, and caches a new controller.
func (r *Registry) CreateController(ctx context.Context, c *Controller) error {
	if c.ID == "" {
		c.ID = GenerateID()
	}
	if err := ValidateController(c); err != nil {
		return err
	}
	if err := r.repo.CreateController(ctx, c); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.controllers[c.ID] = c.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("controller created", "id", c.ID, "name", c.Name)
	return nil
}

// UpdateController validates, persists, and updates the cached
// controller.
func (r *Registry) UpdateController(ctx context.Context, c *Controller) error {
	if err := ValidateController(c); err != nil {
		return err
	}
	if err := r.repo.UpdateController(ctx, c); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.controllers[c.ID] = c.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("controller updated", "id", c.ID, "name", c.Name)
	return nil
}

// DeleteController removes a controller from persistence and cache.
// Controllers with attached devices are protected.
func (r *Registry) DeleteController(ctx context.Context, id string) error {
	if err := r.repo.DeleteController(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.controllers, id)
	r.cacheMu.Unlock()

	r.logger.Info("controller deleted", "id", id)
	return nil
}

// ─── Devices ────────────────────────────────────────────────────────────────

// GetDevice retrieves a device by ID.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(_ context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.devices[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return nil, ErrNotFound
}

// ListDevices retrieves all devices from the cache.
// Returns deep copies sorted by controller then channel.
func (r *Registry) ListDevices(_ context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].ControllerID != devices[j].ControllerID {
			return devices[i].ControllerID < devices[j].ControllerID
		}
		return devices[i].Channel < devices[j].Channel
	})
	return devices, nil
}

// DevicesByGroup retrieves all devices in the named broadcast group.
func (r *Registry) DevicesByGroup(_ context.Context, group string) ([]Device, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	var devices []Device
	for _, d := range r.devices {
		if d.Group != nil && *d.Group == group {
			devices = append(devices, *d.DeepCopy())
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Name < devices[j].Name
	})
	return devices, nil
}

// CreateDevice validates, persists, and caches a new device.
// The owning controller must already exist.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.requireController(d.ControllerID); err != nil {
		return err
	}
	if err := r.repo.CreateDevice(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.devices[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created",
		"id", d.ID,
		"name", d.Name,
		"controller_id", d.ControllerID,
		"channel", d.Channel,
	)
	return nil
}

// UpdateDevice validates, persists, and updates the cached device.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.requireController(d.ControllerID); err != nil {
		return err
	}
	if err := r.repo.UpdateDevice(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.devices[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "id", d.ID, "name", d.Name)
	return nil
}

// DeleteDevice removes a device from persistence and cache.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.DeleteDevice(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.devices, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// Counts returns the number of cached controllers and devices.
func (r *Registry) Counts() (controllers, devices int) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.controllers), len(r.devices)
}

// requireController checks the owning controller exists in cache.
func (r *Registry) requireController(id string) error {
	r.cacheMu.RLock()
	_, ok := r.controllers[id]
	r.cacheMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrControllerNotFound, id)
	}
	return nil
}
