// Package lifecycle defines the OpenNebula VM lifecycle states, the target
// states a caller may request, and the legal transition table between them.
package lifecycle

import "fmt"

// State is the lifecycle state of a virtual machine as reported by
// OpenNebula (one.vm.info STATE field), plus the synthetic StateAbsent
// used when no VM with the requested name exists.
type State string

const (
	// StateAbsent means no VM record exists. Never reported by OpenNebula;
	// synthesized locally when a pool lookup finds nothing.
	StateAbsent State = "absent"

	// StateInit is the initial transient state right after allocation.
	StateInit State = "init"

	// StatePending means the VM is waiting for the scheduler to pick a host.
	StatePending State = "pending"

	// StateHold means the VM was created on hold and will not be scheduled
	// until released.
	StateHold State = "hold"

	// StateActive means the VM is deployed on a host (running or in an
	// LCM sub-state).
	StateActive State = "active"

	// StateStopped means the VM state was saved and its disks moved back
	// to the datastore.
	StateStopped State = "stopped"

	// StateSuspended means the VM state was saved on the host.
	StateSuspended State = "suspended"

	// StateDone means the VM was terminated. Terminal: OpenNebula keeps the
	// record for accounting but no transition out of it exists.
	StateDone State = "done"

	// StatePoweroff means the VM is powered off but still deployed on a host.
	StatePoweroff State = "poweroff"

	// StateUndeployed means the VM was shut down and removed from its host,
	// keeping its disks in the datastore.
	StateUndeployed State = "undeployed"

	// StateCloning means the VM disks are still being cloned.
	StateCloning State = "cloning"

	// StateCloningFailure means disk cloning failed.
	StateCloningFailure State = "cloning_failure"
)

// rawStates maps the numeric STATE codes from the XML-RPC API to State
// values. Codes 7 (unused) and anything unknown map to nothing.
var rawStates = map[int]State{
	0:  StateInit,
	1:  StatePending,
	2:  StateHold,
	3:  StateActive,
	4:  StateStopped,
	5:  StateSuspended,
	6:  StateDone,
	8:  StatePoweroff,
	9:  StateUndeployed,
	10: StateCloning,
	11: StateCloningFailure,
}

// FromRaw converts a numeric OpenNebula STATE code to a State.
func FromRaw(code int) (State, error) {
	s, ok := rawStates[code]
	if !ok {
		return "", fmt.Errorf("unknown VM state code %d", code)
	}
	return s, nil
}

// String returns the state name.
func (s State) String() string {
	return string(s)
}

// Exists reports whether the state describes a VM that still has a live
// record on the frontend. Done VMs are kept for accounting only and are
// treated as gone.
func (s State) Exists() bool {
	return s != StateAbsent && s != StateDone
}

// Target is the desired end state requested for a VM.
type Target string

const (
	// TargetPresent ensures the VM exists; a newly created VM is left on hold.
	TargetPresent Target = "present"

	// TargetAbsent ensures the VM is terminated.
	TargetAbsent Target = "absent"

	// TargetStarted ensures the VM exists and is running.
	TargetStarted Target = "started"

	// TargetStopped ensures the VM is powered off.
	TargetStopped Target = "stopped"

	// TargetSuspended ensures the VM is suspended.
	TargetSuspended Target = "suspended"

	// TargetResumed resumes a suspended VM.
	TargetResumed Target = "resumed"

	// TargetUndeployed ensures the VM is undeployed from its host.
	TargetUndeployed Target = "undeployed"
)

// Targets lists all recognized target states, in documentation order.
var Targets = []Target{
	TargetPresent,
	TargetAbsent,
	TargetStarted,
	TargetStopped,
	TargetSuspended,
	TargetResumed,
	TargetUndeployed,
}

// ParseTarget validates and converts a target state string.
func ParseTarget(s string) (Target, error) {
	for _, t := range Targets {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target state %q (valid: %v)", s, Targets)
}

// Action is a single remote operation issued while converging a VM.
type Action string

const (
	// ActionCreate instantiates the VM from its template, on hold.
	ActionCreate Action = "create"

	// ActionAttachDisk hot-attaches one disk to the VM.
	ActionAttachDisk Action = "attach-disk"

	// ActionRelease releases a held VM to the scheduler.
	ActionRelease Action = "release"

	// ActionResume resumes a stopped, suspended, powered off or
	// undeployed VM.
	ActionResume Action = "resume"

	// ActionPoweroff powers the VM off, keeping it on its host.
	ActionPoweroff Action = "poweroff"

	// ActionSuspend saves the VM state on its host.
	ActionSuspend Action = "suspend"

	// ActionUndeploy shuts the VM down and removes it from its host.
	ActionUndeploy Action = "undeploy"

	// ActionTerminate deletes the VM.
	ActionTerminate Action = "terminate"
)
