package reconcile

import (
	"errors"
	"fmt"

	"github.com/jbweber/onesync/internal/config"
	"github.com/jbweber/onesync/internal/lifecycle"
	"github.com/jbweber/onesync/internal/one"
)

// ErrMissingTemplate is returned when the VM must be created but the spec
// carries no template_id.
var ErrMissingTemplate = errors.New("template_id is required to create the virtual machine")

// step is one planned remote operation. disk is set only for attach-disk
// steps.
type step struct {
	action lifecycle.Action
	disk   *config.DiskSpec
}

// buildPlan computes the ordered action sequence converging the VM from
// the snapshot to the spec. It is a pure function of its inputs: no RPC
// happens here, so an unreachable target or a missing template fails
// before any remote mutation.
//
// Plan shape: [create?] [attach-disk...] [lifecycle transitions...].
// Disks are attached before state transitions because some targets need
// them in place before deployment. An empty plan means the VM already
// satisfies the spec.
func buildPlan(spec *config.Spec, rec *one.VMRecord) ([]step, error) {
	current := lifecycle.StateAbsent
	if rec != nil {
		current = rec.State
	}

	seq, err := lifecycle.Path(current, spec.Target)
	if err != nil {
		return nil, fmt.Errorf("cannot reach state %q: %w", spec.Target, err)
	}

	var steps []step

	transitions := seq
	if len(seq) > 0 && seq[0] == lifecycle.ActionCreate {
		if spec.TemplateID == nil {
			return nil, ErrMissingTemplate
		}
		steps = append(steps, step{action: lifecycle.ActionCreate})
		transitions = seq[1:]
	}

	// Disk diff by count: spec disks beyond the attached ones are missing
	// and get attached in spec order. Attached disks are never detached or
	// resized; an existing mismatch is left alone, not auto-repaired.
	if spec.Target != lifecycle.TargetAbsent {
		attached := 0
		if rec != nil {
			attached = len(rec.Disks)
		}
		for i := attached; i < len(spec.Disks); i++ {
			steps = append(steps, step{action: lifecycle.ActionAttachDisk, disk: &spec.Disks[i]})
		}
	}

	for _, action := range transitions {
		steps = append(steps, step{action: action})
	}

	return steps, nil
}
