package reconcile

import (
	"context"

	"github.com/jbweber/onesync/internal/lifecycle"
	"github.com/jbweber/onesync/internal/one"
)

// oneClient defines the OpenNebula operations needed for reconciliation.
// This wraps operations from *one.Client to allow for testing.
//
// In production, this is satisfied by *one.Client directly.
// In tests, this is satisfied by mock implementations.
type oneClient interface {
	// FindVM looks a VM up by name, returning nil when absent.
	FindVM(ctx context.Context, name string) (*one.VMRecord, error)

	// CreateVM instantiates a template on hold and returns the VM id.
	CreateVM(ctx context.Context, templateID int, name, overrides string) (int, error)

	// ApplyAction runs one lifecycle action on a VM.
	ApplyAction(ctx context.Context, id int, action lifecycle.Action) error

	// AttachDisk attaches one disk, described by a DISK template vector.
	AttachDisk(ctx context.Context, id int, diskTemplate string) error
}
