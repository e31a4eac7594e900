package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jbweber/onesync/internal/one"
	"github.com/jbweber/onesync/internal/reconcile"
)

// TableFormatter formats output as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatResult formats a reconciliation result as a table row.
func (f *TableFormatter) FormatResult(result *reconcile.Result) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tID\tSTATE\tCHANGED\tACTIONS")
	}

	id := "-"
	if result.VMID >= 0 {
		id = fmt.Sprintf("%d", result.VMID)
	}

	changed := "no"
	if result.Changed {
		changed = "yes"
	}

	actions := "-"
	if len(result.Actions) > 0 {
		actions = strings.Join(result.Actions, ",")
	}

	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		result.Name, id, result.State, changed, actions)

	_ = w.Flush()
	return buf.String(), nil
}

// FormatVM formats a VM record as a table row.
func (f *TableFormatter) FormatVM(rec *one.VMRecord) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tID\tSTATE\tCPU\tVCPU\tMEMORY\tDISKS\tIPS")
	}

	ips := "-"
	if len(rec.IPs) > 0 {
		ips = strings.Join(rec.IPs, ",")
	}

	_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%g\t%d\t%d MiB\t%d\t%s\n",
		rec.Name, rec.ID, rec.State, rec.CPU, rec.VCPU, rec.MemoryMB, len(rec.Disks), ips)

	_ = w.Flush()
	return buf.String(), nil
}
