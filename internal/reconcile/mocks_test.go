package reconcile

import (
	"context"
	"sync"

	"github.com/jbweber/onesync/internal/lifecycle"
	"github.com/jbweber/onesync/internal/one"
)

// mockOneClient is a mock implementation of the oneClient interface for testing.
type mockOneClient struct {
	mu sync.Mutex

	// Configurable behavior
	findVMFunc      func(ctx context.Context, name string) (*one.VMRecord, error)
	createVMFunc    func(ctx context.Context, templateID int, name, overrides string) (int, error)
	applyActionFunc func(ctx context.Context, id int, action lifecycle.Action) error
	attachDiskFunc  func(ctx context.Context, id int, diskTemplate string) error

	// Call tracking
	findVMCalls      []string
	createVMCalls    []string // overrides templates
	applyActionCalls []lifecycle.Action
	attachDiskCalls  []string // disk templates
}

// newMockOneClient creates a mock client whose VM does not exist and whose
// mutations succeed. Create makes subsequent lookups return a held VM,
// mirroring the real frontend.
func newMockOneClient() *mockOneClient {
	m := &mockOneClient{}

	m.findVMFunc = func(ctx context.Context, name string) (*one.VMRecord, error) {
		// Once created, the VM shows up on hold.
		if len(m.createVMCalls) > 0 {
			return &one.VMRecord{ID: 42, Name: name, State: lifecycle.StateHold}, nil
		}
		return nil, nil
	}

	m.createVMFunc = func(ctx context.Context, templateID int, name, overrides string) (int, error) {
		return 42, nil
	}

	m.applyActionFunc = func(ctx context.Context, id int, action lifecycle.Action) error {
		return nil
	}

	m.attachDiskFunc = func(ctx context.Context, id int, diskTemplate string) error {
		return nil
	}

	return m
}

func (m *mockOneClient) FindVM(ctx context.Context, name string) (*one.VMRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findVMCalls = append(m.findVMCalls, name)
	return m.findVMFunc(ctx, name)
}

func (m *mockOneClient) CreateVM(ctx context.Context, templateID int, name, overrides string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createVMCalls = append(m.createVMCalls, overrides)
	return m.createVMFunc(ctx, templateID, name, overrides)
}

func (m *mockOneClient) ApplyAction(ctx context.Context, id int, action lifecycle.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyActionCalls = append(m.applyActionCalls, action)
	return m.applyActionFunc(ctx, id, action)
}

func (m *mockOneClient) AttachDisk(ctx context.Context, id int, diskTemplate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachDiskCalls = append(m.attachDiskCalls, diskTemplate)
	return m.attachDiskFunc(ctx, id, diskTemplate)
}

// mutationCount returns how many mutating calls the mock has seen.
func (m *mockOneClient) mutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.createVMCalls) + len(m.applyActionCalls) + len(m.attachDiskCalls)
}
