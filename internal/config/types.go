package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/onesync/internal/lifecycle"
)

// ErrValidation wraps every specification validation failure so callers can
// distinguish bad input (zero remote side effects) from remote errors.
var ErrValidation = errors.New("invalid specification")

// Spec is the complete declarative input for one reconciliation: how to
// reach the OpenNebula frontend and what the named VM should look like.
type Spec struct {
	// Endpoint is the OpenNebula XML-RPC URL, e.g. "http://one:2633/RPC2".
	// Falls back to the ONE_XMLRPC environment variable.
	Endpoint string `yaml:"endpoint,omitempty"`

	// User / Password authenticate against the frontend.
	// Fall back to ONE_AUTH_USER / ONE_AUTH_PASS.
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Name is the VM name. It is the lookup key and must be unique on the
	// frontend; reconciliation fails if several VMs share it.
	Name string `yaml:"name"`

	// TemplateID is the template to instantiate from. Only required when
	// the VM does not exist yet and the target state needs it to.
	TemplateID *int `yaml:"template_id,omitempty"`

	// CPU is the allocated physical CPU share. Defaults to 2.
	CPU float64 `yaml:"cpu,omitempty"`

	// VCPU is the number of virtual CPUs. Defaults to 2.
	VCPU int `yaml:"vcpu,omitempty"`

	// Memory is the memory size. A bare number means MiB; unit-suffixed
	// strings ("512m", "8g", "1t", optionally with a trailing "b") use
	// binary multiples. Defaults to "2048".
	Memory string `yaml:"memory,omitempty"`

	// NICs is the ordered list of virtual network IDs to attach.
	NICs []int `yaml:"nics,omitempty"`

	// Graphics configures console access. Defaults to VNC.
	Graphics *GraphicsSpec `yaml:"graphics,omitempty"`

	// Disks are additional disks beyond the ones in the template, in
	// attachment order.
	Disks []DiskSpec `yaml:"disks,omitempty"`

	// Context carries OpenNebula contextualization attributes.
	Context *ContextSpec `yaml:"context,omitempty"`

	// State is the requested target state. Defaults to "started".
	State string `yaml:"state,omitempty"`

	// Derived fields, populated by Normalize/Validate (not in YAML).
	MemoryBytes int64            `yaml:"-"`
	Target      lifecycle.Target `yaml:"-"`
}

// GraphicsSpec configures VM console graphics.
type GraphicsSpec struct {
	// Type selects the console protocol: "vnc" or "spice".
	Type string `yaml:"type"`

	// Keymap sets the keyboard layout, e.g. "fr". Optional.
	Keymap string `yaml:"keymap,omitempty"`

	// Listen is the listen address for the console. Optional.
	Listen string `yaml:"listen,omitempty"`
}

// DiskSpec describes one additional disk.
type DiskSpec struct {
	// Size is the disk size; same accepted forms as Spec.Memory.
	Size string `yaml:"size"`

	// DatastoreID selects the datastore the disk is allocated in.
	DatastoreID int `yaml:"datastore_id"`

	// SizeBytes is derived from Size by Validate (not in YAML).
	SizeBytes int64 `yaml:"-"`
}

// ContextSpec carries contextualization attributes passed to the VM.
type ContextSpec struct {
	// SSHPublicKeys are injected into the VM via the CONTEXT section.
	SSHPublicKeys []string `yaml:"ssh_public_keys,omitempty"`

	// StartScript runs on first boot.
	StartScript string `yaml:"start_script,omitempty"`
}

// namePattern matches OpenNebula-safe VM names: leading alphanumeric, then
// alphanumerics, dots, hyphens or underscores.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Normalize fills defaults and environment fallbacks. Called automatically
// by Load before validation.
func (s *Spec) Normalize() {
	s.Name = strings.TrimSpace(s.Name)

	if s.Endpoint == "" {
		s.Endpoint = os.Getenv("ONE_XMLRPC")
	}
	if s.User == "" {
		s.User = os.Getenv("ONE_AUTH_USER")
	}
	if s.Password == "" {
		s.Password = os.Getenv("ONE_AUTH_PASS")
	}

	if s.CPU == 0 {
		s.CPU = 2
	}
	if s.VCPU == 0 {
		s.VCPU = 2
	}
	if s.Memory == "" {
		s.Memory = "2048"
	}
	if s.State == "" {
		s.State = string(lifecycle.TargetStarted)
	}
	if s.Graphics == nil {
		s.Graphics = &GraphicsSpec{Type: "vnc"}
	}
	s.Graphics.Type = strings.ToLower(strings.TrimSpace(s.Graphics.Type))
}

// Validate checks the specification and populates derived fields. It never
// touches the network; every failure wraps ErrValidation.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !namePattern.MatchString(s.Name) {
		return fmt.Errorf("%w: name %q must start with an alphanumeric and contain only alphanumerics, dots, hyphens or underscores", ErrValidation, s.Name)
	}
	if s.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required (or set ONE_XMLRPC)", ErrValidation)
	}
	if s.User == "" {
		return fmt.Errorf("%w: user is required (or set ONE_AUTH_USER)", ErrValidation)
	}
	if s.Password == "" {
		return fmt.Errorf("%w: password is required (or set ONE_AUTH_PASS)", ErrValidation)
	}

	if s.CPU <= 0 {
		return fmt.Errorf("%w: cpu must be > 0, got %g", ErrValidation, s.CPU)
	}
	if s.VCPU <= 0 {
		return fmt.Errorf("%w: vcpu must be > 0, got %d", ErrValidation, s.VCPU)
	}

	mem, err := ParseSize(s.Memory)
	if err != nil {
		return fmt.Errorf("%w: memory: %v", ErrValidation, err)
	}
	s.MemoryBytes = mem

	if s.TemplateID != nil && *s.TemplateID < 0 {
		return fmt.Errorf("%w: template_id must be >= 0, got %d", ErrValidation, *s.TemplateID)
	}

	for i, nic := range s.NICs {
		if nic < 0 {
			return fmt.Errorf("%w: nics[%d] must be >= 0, got %d", ErrValidation, i, nic)
		}
	}

	if s.Graphics != nil {
		switch s.Graphics.Type {
		case "vnc", "spice":
		default:
			return fmt.Errorf("%w: graphics type must be vnc or spice, got %q", ErrValidation, s.Graphics.Type)
		}
	}

	for i := range s.Disks {
		size, err := ParseSize(s.Disks[i].Size)
		if err != nil {
			return fmt.Errorf("%w: disks[%d].size: %v", ErrValidation, i, err)
		}
		s.Disks[i].SizeBytes = size
		if s.Disks[i].DatastoreID < 0 {
			return fmt.Errorf("%w: disks[%d].datastore_id must be >= 0, got %d", ErrValidation, i, s.Disks[i].DatastoreID)
		}
	}

	if s.Context != nil {
		for i, key := range s.Context.SSHPublicKeys {
			if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
				return fmt.Errorf("%w: context.ssh_public_keys[%d] is not a valid SSH public key: %v", ErrValidation, i, err)
			}
		}
	}

	target, err := lifecycle.ParseTarget(s.State)
	if err != nil {
		return fmt.Errorf("%w: state: %v", ErrValidation, err)
	}
	s.Target = target

	return nil
}

// MemoryMB returns the memory size in MiB, rounding any sub-MiB remainder
// up. OpenNebula templates take MEMORY in MiB and a requested size is never
// silently shrunk.
func (s *Spec) MemoryMB() int64 {
	return ceilMB(s.MemoryBytes)
}

// SizeMB returns the disk size in MiB, rounding up like Spec.MemoryMB.
func (d *DiskSpec) SizeMB() int64 {
	return ceilMB(d.SizeBytes)
}

// Load parses, normalizes and validates a specification from YAML bytes.
func Load(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrValidation, err)
	}

	spec.Normalize()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// LoadFromFile loads a specification from a YAML file.
func LoadFromFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	return Load(data)
}
