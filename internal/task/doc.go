// Package task waits for asynchronous Proxmox VE tasks.
//
// Every mutating API call (create, start, stop, shutdown, delete, upload)
// returns a task handle, the UPID, instead of a result. The Poller parses
// that handle, picks a timeout from the task type, and queries
//
//	GET /nodes/{node}/tasks/{upid}/status
//
// at a fixed interval until the task reports an exit status or the attempt
// budget runs out.
//
// Budget:
//
// The number of status queries is floor(timeout / interval) + 1, with one
// sleep between consecutive queries. Image copies ("imgcopy", produced by
// storage uploads) use their own, longer timeout.
//
// Outcomes:
//
//   - An exit status is returned as soon as it appears. "OK" is success;
//     any other value is the remote failure message.
//   - Budget exhausted: a proxmox timeout error carrying the caller's
//     message key (for example "start_vm_timeout").
//   - Status query failure: the gateway error, unchanged.
//   - Unparsable handle: a proxmox malformed-response error.
package task
