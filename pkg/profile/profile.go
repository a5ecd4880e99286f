// Package profile holds the vendor capability table used to adapt sessions
// to the CLI conventions of each supported device family.
package profile

import "sort"

// Profile describes how to drive one vendor family's CLI: which command
// disables output pagination, how privilege elevation works, and whether the
// family is handled by the legacy raw-telnet login machine instead of the
// managed session layer.
type Profile struct {
	// ID is the device-type identifier, e.g. "cisco_ios".
	ID string

	// Brands are inventory-facing aliases resolving to this profile.
	Brands []string

	// DisablePaging is sent right after login so long output never stops at
	// a pager prompt. Empty means the family has no such command.
	DisablePaging string

	// EnableCommand enters privileged mode when the base prompt indicates
	// an unprivileged session.
	EnableCommand string

	// EnableNoSecretFirst makes elevation try EnableCommand without a
	// secret before falling back to secret-based elevation.
	EnableNoSecretFirst bool

	// SysnameCommand, when set, is issued to read the configured system
	// name, which is preferred over the prompt-derived device name.
	SysnameCommand string

	// LegacyTelnet marks families whose telnet logins go through the raw
	// login state machine rather than the managed session layer.
	LegacyTelnet bool
}

// Registry is an immutable lookup table from profile IDs and brand aliases
// to profiles. It is built once at startup and never mutated afterwards.
type Registry struct {
	byKey map[string]Profile
	ids   []string
}

// NewRegistry builds a registry from the given profiles. Both the profile ID
// and every brand alias become lookup keys.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{byKey: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		r.byKey[p.ID] = p
		for _, brand := range p.Brands {
			r.byKey[brand] = p
		}
		r.ids = append(r.ids, p.ID)
	}
	sort.Strings(r.ids)
	return r
}

// Lookup resolves a profile ID or brand alias.
func (r *Registry) Lookup(key string) (Profile, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// IDs returns the profile IDs known to the registry, sorted.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Default returns the registry of the six supported vendor families.
func Default() *Registry {
	return NewRegistry(
		Profile{
			ID:            "huawei",
			Brands:        []string{"华为"},
			DisablePaging: "screen-length 0 temporary",
			EnableCommand: "super",
		},
		Profile{
			ID:                  "cisco_ios",
			Brands:              []string{"思科"},
			DisablePaging:       "terminal length 0",
			EnableCommand:       "enable",
			EnableNoSecretFirst: true,
		},
		Profile{
			ID:             "hp_comware",
			Brands:         []string{"华三"},
			DisablePaging:  "screen-length disable",
			EnableCommand:  "super",
			SysnameCommand: "display current-configuration | include sysname",
		},
		Profile{
			ID:            "ruijie_os",
			Brands:        []string{"锐捷"},
			DisablePaging: "terminal length 0",
			EnableCommand: "enable",
		},
		Profile{
			ID:            "zte_zxros",
			Brands:        []string{"中兴"},
			DisablePaging: "terminal length 0",
			EnableCommand: "enable",
		},
		Profile{
			ID:            "dptech_os",
			Brands:        []string{"迪普"},
			DisablePaging: "terminal line 0",
			LegacyTelnet:  true,
		},
	)
}
