package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/jbweber/onesync/internal/one"
)

// Retrieve fetches the current record of a named VM without changing
// anything. It fails when the VM does not exist.
func Retrieve(ctx context.Context, endpoint, user, password, name string) (*one.VMRecord, error) {
	client, err := one.Connect(endpoint, user, password)
	if err != nil {
		return nil, fmt.Errorf("failed to set up OpenNebula client: %w", err)
	}

	return retrieveWithDeps(ctx, name, client)
}

// retrieveWithDeps retrieves with an injected client.
func retrieveWithDeps(ctx context.Context, name string, client oneClient) (*one.VMRecord, error) {
	log.Printf("Looking up VM %q...", name)
	rec, err := findWithRetry(ctx, client, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up VM %q: %w", name, err)
	}
	if rec == nil {
		return nil, &one.RPCError{Kind: one.KindNotFound, Op: "vmpool.info", Err: fmt.Errorf("VM %q does not exist", name)}
	}

	return rec, nil
}
