package one

import (
	"fmt"

	"github.com/OpenNebula/one/src/oca/go/src/goca/schemas/shared"
	vmschema "github.com/OpenNebula/one/src/oca/go/src/goca/schemas/vm"

	"github.com/jbweber/onesync/internal/lifecycle"
)

// VMRecord is a read-only snapshot of a remote VM, taken fresh for one
// reconciliation and discarded afterwards. The frontend owns the data.
type VMRecord struct {
	// ID is the numeric VM id.
	ID int `json:"vm_id" yaml:"vm_id"`

	// Name is the VM name.
	Name string `json:"name" yaml:"name"`

	// State is the lifecycle state at snapshot time.
	State lifecycle.State `json:"state" yaml:"state"`

	// Disks are the currently attached disks, in DISK_ID order as the
	// frontend reports them.
	Disks []DiskRecord `json:"disks,omitempty" yaml:"disks,omitempty"`

	// NICs are the attached virtual network ids, in NIC order.
	NICs []int `json:"nics,omitempty" yaml:"nics,omitempty"`

	// IPs are the addresses assigned to the NICs, where known.
	IPs []string `json:"ips,omitempty" yaml:"ips,omitempty"`

	// CPU, VCPU and MemoryMB mirror the template capacity values.
	CPU      float64 `json:"cpu" yaml:"cpu"`
	VCPU     int     `json:"vcpu" yaml:"vcpu"`
	MemoryMB int64   `json:"memory_mb" yaml:"memory_mb"`
}

// DiskRecord is one attached disk as reported by the frontend.
type DiskRecord struct {
	// SizeMB is the disk size in MiB.
	SizeMB int64 `json:"size_mb" yaml:"size_mb"`

	// DatastoreID is the datastore holding the disk, -1 when not reported.
	DatastoreID int `json:"datastore_id" yaml:"datastore_id"`
}

// newVMRecord converts a goca VM document into a snapshot record.
func newVMRecord(info *vmschema.VM) (*VMRecord, error) {
	state, err := lifecycle.FromRaw(info.StateRaw)
	if err != nil {
		return nil, fmt.Errorf("VM %d: %w", info.ID, err)
	}

	rec := &VMRecord{
		ID:    info.ID,
		Name:  info.Name,
		State: state,
	}

	// Capacity values live in the TEMPLATE section as strings.
	if cpu, err := info.Template.GetFloat("CPU"); err == nil {
		rec.CPU = cpu
	}
	if vcpu, err := info.Template.GetInt("VCPU"); err == nil {
		rec.VCPU = vcpu
	}
	if mem, err := info.Template.GetInt("MEMORY"); err == nil {
		rec.MemoryMB = int64(mem)
	}

	for _, disk := range info.Template.GetDisks() {
		d := DiskRecord{DatastoreID: -1}
		if size, err := disk.GetI(shared.Size); err == nil {
			d.SizeMB = int64(size)
		}
		if ds, err := disk.GetI(shared.DatastoreID); err == nil {
			d.DatastoreID = ds
		}
		rec.Disks = append(rec.Disks, d)
	}

	for _, nic := range info.Template.GetNICs() {
		if netID, err := nic.GetI(shared.NetworkID); err == nil {
			rec.NICs = append(rec.NICs, netID)
		}
		if ip, err := nic.Get(shared.IP); err == nil && ip != "" {
			rec.IPs = append(rec.IPs, ip)
		}
	}

	return rec, nil
}
