package disk

import "sync"

// A Role tells what a device is used for.
type Role int

// The roles a device can be registered under.
const (
	RoleBoot Role = iota
	RoleFilesys
	RoleScratch
	RoleSwap
)

func (r Role) String() string {
	switch r {
	case RoleBoot:
		return "boot"
	case RoleFilesys:
		return "filesys"
	case RoleScratch:
		return "scratch"
	case RoleSwap:
		return "swap"
	default:
		return "unknown"
	}
}

// A Registry remembers which device plays which role.
type Registry struct {
	lock    sync.RWMutex
	devices map[Role]Device
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[Role]Device),
	}
}

// Register assigns a device to a role. Registering a second device under the
// same role panics.
func (r *Registry) Register(role Role, device Device) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, found := r.devices[role]; found {
		panic("device already registered as " + role.String())
	}

	r.devices[role] = device
}

// Locate returns the device that plays the given role, if one is configured.
func (r *Registry) Locate(role Role) (Device, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	device, found := r.devices[role]

	return device, found
}
