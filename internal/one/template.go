package one

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jbweber/onesync/internal/config"
)

// VMOverrides renders the attribute-override template passed to
// one.template.instantiate. It carries the spec's CPU, VCPU and MEMORY
// values plus NIC, GRAPHICS and CONTEXT sections in the OpenNebula
// template syntax:
//
//	CPU = "1.5"
//	VCPU = "2"
//	MEMORY = "2048"
//	NIC = [ NETWORK_ID = "1" ]
//	GRAPHICS = [ TYPE = "VNC", KEYMAP = "fr" ]
//
// Disks are not part of the override; the reconciler attaches them
// individually so an existing VM is diffed the same way as a new one.
func VMOverrides(spec *config.Spec) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CPU = \"%s\"\n", strconv.FormatFloat(spec.CPU, 'f', -1, 64))
	fmt.Fprintf(&b, "VCPU = \"%d\"\n", spec.VCPU)
	fmt.Fprintf(&b, "MEMORY = \"%d\"\n", spec.MemoryMB())

	for _, nic := range spec.NICs {
		fmt.Fprintf(&b, "NIC = [ NETWORK_ID = \"%d\" ]\n", nic)
	}

	if spec.Graphics != nil {
		pairs := []string{fmt.Sprintf("TYPE = \"%s\"", strings.ToUpper(spec.Graphics.Type))}
		if spec.Graphics.Listen != "" {
			pairs = append(pairs, fmt.Sprintf("LISTEN = \"%s\"", quote(spec.Graphics.Listen)))
		}
		if spec.Graphics.Keymap != "" {
			pairs = append(pairs, fmt.Sprintf("KEYMAP = \"%s\"", quote(spec.Graphics.Keymap)))
		}
		fmt.Fprintf(&b, "GRAPHICS = [ %s ]\n", strings.Join(pairs, ", "))
	}

	if ctx := spec.Context; ctx != nil {
		pairs := []string{"NETWORK = \"YES\""}
		if len(ctx.SSHPublicKeys) > 0 {
			pairs = append(pairs, fmt.Sprintf("SSH_PUBLIC_KEY = \"%s\"", quote(strings.Join(ctx.SSHPublicKeys, "\n"))))
		}
		if ctx.StartScript != "" {
			pairs = append(pairs, fmt.Sprintf("START_SCRIPT = \"%s\"", quote(ctx.StartScript)))
		}
		fmt.Fprintf(&b, "CONTEXT = [ %s ]\n", strings.Join(pairs, ", "))
	}

	return b.String()
}

// DiskTemplate renders the DISK vector for one.vm.attach. SIZE is in MiB.
func DiskTemplate(disk config.DiskSpec) string {
	return fmt.Sprintf("DISK = [ SIZE = \"%d\", DATASTORE_ID = \"%d\" ]\n", disk.SizeMB(), disk.DatastoreID)
}

// quote escapes double quotes inside a template attribute value.
func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
