// Package one wraps the OpenNebula XML-RPC API behind the narrow surface
// the reconciler needs: look a VM up by name, instantiate one from a
// template, run lifecycle actions and attach disks.
//
// No retries happen at this layer; retry policy belongs to the reconciler.
package one

import (
	"context"
	"fmt"

	"github.com/OpenNebula/one/src/oca/go/src/goca"

	"github.com/jbweber/onesync/internal/lifecycle"
)

// Client talks to one OpenNebula frontend.
type Client struct {
	ctrl *goca.Controller
}

// Connect builds a client for the given XML-RPC endpoint and credentials.
// The transport is HTTP per call, so no connection is established here;
// use Ping to verify reachability.
func Connect(endpoint, user, password string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	conf := goca.NewConfig(user, password, endpoint)
	client := goca.NewDefaultClient(conf)

	return &Client{ctrl: goca.NewController(client)}, nil
}

// Ping verifies the endpoint answers and the credentials are accepted.
// Returns the frontend version on success.
func (c *Client) Ping() (string, error) {
	version, err := c.ctrl.SystemVersion()
	if err != nil {
		return "", wrapErr("system.version", err)
	}
	return version, nil
}

// FindVM looks a VM up by name in the pool. Returns nil without error when
// no VM carries the name, and a Conflict error when more than one does
// (the name is the reconciliation key and must be unique).
//
// The pool is re-read on every call; the frontend is the source of truth
// and nothing is cached between reconciliations.
func (c *Client) FindVM(ctx context.Context, name string) (*VMRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("vmpool.info", err)
	}

	// -2: all visible VMs; -1, -1: whole ID range; -1: any state.
	pool, err := c.ctrl.VMs().Info(-2, -1, -1, -1)
	if err != nil {
		return nil, wrapErr("vmpool.info", err)
	}

	id := -1
	for i := range pool.VMs {
		if pool.VMs[i].Name != name {
			continue
		}
		if id >= 0 {
			return nil, &RPCError{
				Kind: KindConflict,
				Op:   "vmpool.info",
				Err:  fmt.Errorf("multiple VMs named %q (ids %d and %d)", name, id, pool.VMs[i].ID),
			}
		}
		id = pool.VMs[i].ID
	}
	if id < 0 {
		return nil, nil
	}

	return c.vmRecord(ctx, id)
}

// vmRecord fetches the full record of a VM by id.
func (c *Client) vmRecord(ctx context.Context, id int) (*VMRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("vm.info", err)
	}

	info, err := c.ctrl.VM(id).Info(false)
	if err != nil {
		return nil, wrapErr("vm.info", err)
	}

	return newVMRecord(info)
}

// CreateVM instantiates a template under the given name, on hold, applying
// the override template. Returns the new VM id.
func (c *Client) CreateVM(ctx context.Context, templateID int, name, overrides string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, wrapErr("template.instantiate", err)
	}

	// true: instantiate on hold so the scheduler leaves the VM alone until
	// the plan decides to release it. false: do not clone as persistent.
	id, err := c.ctrl.Template(templateID).Instantiate(name, true, overrides, false)
	if err != nil {
		return -1, wrapErr("template.instantiate", err)
	}
	return id, nil
}

// ApplyAction runs one lifecycle action on a VM.
func (c *Client) ApplyAction(ctx context.Context, id int, action lifecycle.Action) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("vm.action", err)
	}

	vc := c.ctrl.VM(id)

	var err error
	switch action {
	case lifecycle.ActionRelease:
		err = vc.Release()
	case lifecycle.ActionResume:
		err = vc.Resume()
	case lifecycle.ActionPoweroff:
		err = vc.Poweroff()
	case lifecycle.ActionSuspend:
		err = vc.Suspend()
	case lifecycle.ActionUndeploy:
		err = vc.Undeploy()
	case lifecycle.ActionTerminate:
		err = vc.Terminate()
	default:
		return fmt.Errorf("action %q is not a vm.action operation", action)
	}

	return wrapErr("vm.action", err)
}

// AttachDisk attaches one disk, described by a DISK template vector, to
// the VM.
func (c *Client) AttachDisk(ctx context.Context, id int, diskTemplate string) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("vm.attach", err)
	}

	return wrapErr("vm.attach", c.ctrl.VM(id).DiskAttach(diskTemplate))
}
