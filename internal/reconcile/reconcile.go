// Package reconcile converges a declared VM specification against the
// actual state of an OpenNebula frontend.
//
// One reconciliation is synchronous and sequential: lifecycle actions do
// not compose, so each is issued and awaited before the next. Concurrent
// reconciliations of the same VM name are not coordinated here; callers
// must serialize per name.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jbweber/onesync/internal/config"
	"github.com/jbweber/onesync/internal/lifecycle"
	"github.com/jbweber/onesync/internal/one"
)

// retryBackoff is the pause before the single lookup retry on timeout.
// A variable so tests can shorten it.
var retryBackoff = 2 * time.Second

// Result reports the outcome of one reconciliation.
type Result struct {
	// RunID correlates log lines and caller automation with this run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Name is the VM name from the spec.
	Name string `json:"name" yaml:"name"`

	// VMID is the numeric VM id, -1 when the VM does not exist.
	VMID int `json:"vm_id" yaml:"vm_id"`

	// Changed reports whether any mutating call was issued. It stays false
	// when the VM already satisfied the spec, which callers must be able
	// to tell apart from an actual change.
	Changed bool `json:"changed" yaml:"changed"`

	// State is the final observed lifecycle state.
	State lifecycle.State `json:"state" yaml:"state"`

	// Actions lists the remote actions that were applied, in order. On
	// failure it holds the actions that succeeded before the abort.
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Reconcile runs one reconciliation of spec against its endpoint.
//
// The spec must already be validated (config.Load does this); no remote
// call is made for input that would fail validation. The whole call is
// bounded by ctx; cancellation mid-plan lets the in-flight remote action
// complete and does not undo anything.
func Reconcile(ctx context.Context, spec *config.Spec) (*Result, error) {
	client, err := one.Connect(spec.Endpoint, spec.User, spec.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to set up OpenNebula client: %w", err)
	}

	return reconcileWithDeps(ctx, spec, client)
}

// reconcileWithDeps reconciles with an injected client.
// This allows for testing by accepting an interface instead of *one.Client.
func reconcileWithDeps(ctx context.Context, spec *config.Spec, client oneClient) (*Result, error) {
	result := &Result{
		RunID: uuid.NewString(),
		Name:  spec.Name,
		VMID:  -1,
	}

	// Step 1: fresh snapshot of the remote VM. Never cached across calls.
	log.Printf("[%s] Looking up VM %q...", result.RunID, spec.Name)
	rec, err := findWithRetry(ctx, client, spec.Name)
	if err != nil {
		return result, fmt.Errorf("failed to look up VM %q: %w", spec.Name, err)
	}

	current := lifecycle.StateAbsent
	if rec != nil {
		current = rec.State
		result.VMID = rec.ID
	}
	result.State = current
	log.Printf("[%s] VM %q is %s, target is %s", result.RunID, spec.Name, current, spec.Target)

	// Step 2: full plan up front. Illegal targets and missing templates
	// fail here, before any mutating call.
	plan, err := buildPlan(spec, rec)
	if err != nil {
		return result, err
	}

	if len(plan) == 0 {
		log.Printf("[%s] VM %q already satisfies the spec, nothing to do", result.RunID, spec.Name)
		return result, nil
	}

	// Step 3: execute strictly in order, aborting on first failure. The
	// remote VM is left in the last state reached, which is always a valid
	// lifecycle state; the next reconciliation picks up from there.
	for _, st := range plan {
		if err := executeStep(ctx, spec, client, result, st); err != nil {
			result.State = observedState(ctx, client, spec.Name, result.State)
			return result, err
		}
		result.Changed = true
		result.Actions = append(result.Actions, string(st.action))
	}

	// Step 4: re-verify convergence against a fresh snapshot.
	result.State = observedState(ctx, client, spec.Name, lifecycle.PostState(current, planActions(plan)))
	log.Printf("[%s] VM %q reconciled: state %s, actions %v", result.RunID, spec.Name, result.State, result.Actions)

	return result, nil
}

// executeStep issues one planned operation, updating result.VMID on create.
func executeStep(ctx context.Context, spec *config.Spec, client oneClient, result *Result, st step) error {
	switch st.action {
	case lifecycle.ActionCreate:
		log.Printf("[%s] Instantiating template %d as %q (on hold)...", result.RunID, *spec.TemplateID, spec.Name)
		id, err := client.CreateVM(ctx, *spec.TemplateID, spec.Name, one.VMOverrides(spec))
		if err != nil {
			return fmt.Errorf("failed to create VM %q: %w", spec.Name, err)
		}
		result.VMID = id
		result.State = lifecycle.StateHold
		return nil

	case lifecycle.ActionAttachDisk:
		log.Printf("[%s] Attaching %d MiB disk (datastore %d)...", result.RunID, st.disk.SizeMB(), st.disk.DatastoreID)
		if err := client.AttachDisk(ctx, result.VMID, one.DiskTemplate(*st.disk)); err != nil {
			return fmt.Errorf("failed to attach disk to VM %d: %w", result.VMID, err)
		}
		return nil

	default:
		log.Printf("[%s] Applying action %q to VM %d...", result.RunID, st.action, result.VMID)
		if err := client.ApplyAction(ctx, result.VMID, st.action); err != nil {
			return fmt.Errorf("failed to apply %q to VM %d: %w", st.action, result.VMID, err)
		}
		return nil
	}
}

// findWithRetry looks the VM up, retrying exactly once on timeout. Reads
// are safe to repeat; mutating actions never are, to avoid duplicate
// creations or doubled lifecycle commands.
func findWithRetry(ctx context.Context, client oneClient, name string) (*one.VMRecord, error) {
	rec, err := client.FindVM(ctx, name)
	if err == nil || !one.IsKind(err, one.KindTimeout) {
		return rec, err
	}

	log.Printf("VM lookup timed out, retrying once in %v...", retryBackoff)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryBackoff):
	}

	return client.FindVM(ctx, name)
}

// observedState re-reads the VM state after execution. Falls back to the
// predicted state when the re-read fails or the VM is gone.
func observedState(ctx context.Context, client oneClient, name string, predicted lifecycle.State) lifecycle.State {
	rec, err := client.FindVM(ctx, name)
	if err != nil {
		log.Printf("Warning: could not re-read VM %q after reconciliation: %v", name, err)
		return predicted
	}
	if rec == nil {
		if predicted == lifecycle.StateDone {
			return lifecycle.StateDone
		}
		return lifecycle.StateAbsent
	}
	return rec.State
}

// planActions flattens a plan to its action sequence.
func planActions(plan []step) []lifecycle.Action {
	actions := make([]lifecycle.Action, len(plan))
	for i, st := range plan {
		actions[i] = st.action
	}
	return actions
}
