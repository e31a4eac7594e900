package config

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/jbweber/onesync/internal/lifecycle"
)

// validSpec returns a minimal spec that passes validation.
func validSpec() *Spec {
	return &Spec{
		Endpoint: "http://one.test:2633/RPC2",
		User:     "oneadmin",
		Password: "secret",
		Name:     "vm1",
	}
}

// testAuthorizedKey generates a real SSH public key in authorized_keys form.
func testAuthorizedKey(t *testing.T) string {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("failed to convert key: %v", err)
	}
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
}

func TestNormalizeDefaults(t *testing.T) {
	spec := validSpec()
	spec.Normalize()

	if spec.CPU != 2 {
		t.Errorf("Expected default CPU 2, got %g", spec.CPU)
	}
	if spec.VCPU != 2 {
		t.Errorf("Expected default VCPU 2, got %d", spec.VCPU)
	}
	if spec.Memory != "2048" {
		t.Errorf("Expected default memory 2048, got %q", spec.Memory)
	}
	if spec.State != "started" {
		t.Errorf("Expected default state started, got %q", spec.State)
	}
	if spec.Graphics == nil || spec.Graphics.Type != "vnc" {
		t.Errorf("Expected default VNC graphics, got %+v", spec.Graphics)
	}
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	spec := validSpec()
	spec.CPU = 0.5
	spec.VCPU = 4
	spec.Memory = "8g"
	spec.State = "stopped"
	spec.Graphics = &GraphicsSpec{Type: " SPICE "}
	spec.Normalize()

	if spec.CPU != 0.5 || spec.VCPU != 4 || spec.Memory != "8g" || spec.State != "stopped" {
		t.Errorf("Explicit values were overwritten: %+v", spec)
	}
	if spec.Graphics.Type != "spice" {
		t.Errorf("Expected graphics type folded to spice, got %q", spec.Graphics.Type)
	}
}

func TestNormalizeEnvFallbacks(t *testing.T) {
	t.Setenv("ONE_XMLRPC", "http://env.test:2633/RPC2")
	t.Setenv("ONE_AUTH_USER", "envuser")
	t.Setenv("ONE_AUTH_PASS", "envpass")

	spec := &Spec{Name: "vm1"}
	spec.Normalize()

	if spec.Endpoint != "http://env.test:2633/RPC2" {
		t.Errorf("Expected endpoint from ONE_XMLRPC, got %q", spec.Endpoint)
	}
	if spec.User != "envuser" || spec.Password != "envpass" {
		t.Errorf("Expected credentials from environment, got %q/%q", spec.User, spec.Password)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr bool
	}{
		{name: "minimal spec is valid", mutate: func(s *Spec) {}},
		{name: "missing name", mutate: func(s *Spec) { s.Name = "" }, wantErr: true},
		{name: "name with spaces", mutate: func(s *Spec) { s.Name = "my vm" }, wantErr: true},
		{name: "name starting with a dot", mutate: func(s *Spec) { s.Name = ".vm" }, wantErr: true},
		{name: "name with dots and hyphens", mutate: func(s *Spec) { s.Name = "web-1.prod_a" }},
		{name: "missing endpoint", mutate: func(s *Spec) { s.Endpoint = "" }, wantErr: true},
		{name: "missing user", mutate: func(s *Spec) { s.User = "" }, wantErr: true},
		{name: "missing password", mutate: func(s *Spec) { s.Password = "" }, wantErr: true},
		{name: "negative cpu", mutate: func(s *Spec) { s.CPU = -1 }, wantErr: true},
		{name: "fractional cpu", mutate: func(s *Spec) { s.CPU = 0.25 }},
		{name: "negative vcpu", mutate: func(s *Spec) { s.VCPU = -2 }, wantErr: true},
		{name: "bad memory", mutate: func(s *Spec) { s.Memory = "lots" }, wantErr: true},
		{name: "negative template id", mutate: func(s *Spec) { s.TemplateID = new(int); *s.TemplateID = -1 }, wantErr: true},
		{name: "negative nic", mutate: func(s *Spec) { s.NICs = []int{0, -1} }, wantErr: true},
		{name: "valid nics", mutate: func(s *Spec) { s.NICs = []int{0, 3} }},
		{name: "bad graphics type", mutate: func(s *Spec) { s.Graphics = &GraphicsSpec{Type: "sdl"} }, wantErr: true},
		{name: "spice graphics", mutate: func(s *Spec) { s.Graphics = &GraphicsSpec{Type: "spice", Keymap: "fr"} }},
		{name: "bad disk size", mutate: func(s *Spec) { s.Disks = []DiskSpec{{Size: "big", DatastoreID: 1}} }, wantErr: true},
		{name: "negative datastore", mutate: func(s *Spec) { s.Disks = []DiskSpec{{Size: "10g", DatastoreID: -1}} }, wantErr: true},
		{name: "bad ssh key", mutate: func(s *Spec) { s.Context = &ContextSpec{SSHPublicKeys: []string{"not a key"}} }, wantErr: true},
		{name: "unknown state", mutate: func(s *Spec) { s.State = "running" }, wantErr: true},
	}

	// Keep the ambient environment out of the fallback logic.
	t.Setenv("ONE_XMLRPC", "")
	t.Setenv("ONE_AUTH_USER", "")
	t.Setenv("ONE_AUTH_PASS", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			spec.Normalize()

			err := spec.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
		})
	}
}

func TestValidateAcceptsRealSSHKey(t *testing.T) {
	spec := validSpec()
	spec.Context = &ContextSpec{SSHPublicKeys: []string{testAuthorizedKey(t)}}
	spec.Normalize()

	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidatePopulatesDerivedFields(t *testing.T) {
	spec := validSpec()
	spec.Memory = "8g"
	spec.State = "suspended"
	spec.Disks = []DiskSpec{{Size: "10g", DatastoreID: 1}}
	spec.Normalize()

	if err := spec.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if spec.MemoryBytes != 8<<30 {
		t.Errorf("Expected 8 GiB in bytes, got %d", spec.MemoryBytes)
	}
	if spec.MemoryMB() != 8192 {
		t.Errorf("Expected 8192 MiB, got %d", spec.MemoryMB())
	}
	if spec.Target != lifecycle.TargetSuspended {
		t.Errorf("Expected target suspended, got %s", spec.Target)
	}
	if spec.Disks[0].SizeMB() != 10240 {
		t.Errorf("Expected 10240 MiB disk, got %d", spec.Disks[0].SizeMB())
	}
}

func TestLoad(t *testing.T) {
	data := []byte(`
name: web-1
endpoint: http://one.test:2633/RPC2
user: oneadmin
password: secret
template_id: 20
cpu: 1.5
vcpu: 4
memory: 4g
state: started
nics: [0, 1]
graphics:
  type: vnc
  keymap: fr
disks:
  - size: 50g
    datastore_id: 1
`)

	spec, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if spec.Name != "web-1" {
		t.Errorf("Expected name web-1, got %q", spec.Name)
	}
	if spec.TemplateID == nil || *spec.TemplateID != 20 {
		t.Errorf("Expected template 20, got %v", spec.TemplateID)
	}
	if spec.CPU != 1.5 || spec.VCPU != 4 {
		t.Errorf("Unexpected capacity: cpu=%g vcpu=%d", spec.CPU, spec.VCPU)
	}
	if spec.MemoryMB() != 4096 {
		t.Errorf("Expected 4096 MiB, got %d", spec.MemoryMB())
	}
	if spec.Target != lifecycle.TargetStarted {
		t.Errorf("Expected target started, got %s", spec.Target)
	}
	if len(spec.NICs) != 2 || spec.NICs[0] != 0 || spec.NICs[1] != 1 {
		t.Errorf("Unexpected NICs: %v", spec.NICs)
	}
	if len(spec.Disks) != 1 || spec.Disks[0].SizeMB() != 51200 {
		t.Errorf("Unexpected disks: %+v", spec.Disks)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load([]byte("name: [unclosed"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vm.yaml")
	content := []byte("name: vm1\nendpoint: http://one.test:2633/RPC2\nuser: oneadmin\npassword: secret\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}

	spec, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if spec.Name != "vm1" {
		t.Errorf("Expected name vm1, got %q", spec.Name)
	}

	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
