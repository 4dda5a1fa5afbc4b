// Package vm provides high-level VM lifecycle management operations on a
// Proxmox VE cluster.
//
// The main operations are:
//   - GetVMInfo / GetVMState: locate a VM and report its power state
//   - GetFreeVMID: lowest unused id in the configured range
//   - CreateVM, StartVM, StopVM, ShutdownVM, DeleteVM: one API call each,
//     followed by waiting for the task it started
//   - Provision: create (and optionally start) a VM from a definition file
//   - ListVMs / ListNodes
//
// Task Results:
//
// Every mutating call returns the task's exit status. A task that ran but
// failed is not an error at this level: the exit status carries the
// server's message and callers decide. Errors are reserved for requests
// that could not be made, tasks that could not be polled, and timeouts
// (proxmox.ErrTimeout carrying the operation's message key, e.g.
// "create_vm_timeout"). Provision is the exception: it treats a non-OK
// exit status as ErrTaskFailed.
//
// VM Lookup:
//
// Operations on existing VMs first resolve the node and type of the id by
// scanning GET /cluster/resources?type=vm. Lookups are not cached unless
// Options.InfoCacheTTL is set; the cache is dropped on create and the entry
// on delete.
//
// Error Handling:
//
// Provision uses best-effort cleanup on failure. If the VM cannot be created
// the uploaded seed ISO is deleted; if it cannot be started the VM is
// destroyed as well. Cleanup errors are logged but do not replace the
// original error.
//
// Context Support:
//
// All operations accept a context.Context. Cancelling it stops task polling
// between attempts.
package vm
