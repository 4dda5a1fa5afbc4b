package task

import (
	"strconv"
	"strings"

	"github.com/jbweber/pvforge/internal/proxmox"
)

const (
	upidPrefix = "UPID"

	// upidFields is the number of fields after the prefix:
	// node, pid, pstart, starttime, type, id, user.
	upidFields = 7
)

// TypeImgCopy is the task type of storage uploads. It has its own timeout.
const TypeImgCopy = "imgcopy"

// Handle is a parsed task handle (UPID).
//
// Format: UPID:<node>:<pid>:<pstart>:<starttime>:<type>:<id>:<user>:
//
// Example: UPID:pve1:000A1B2C:0001E240:65A1B2C3:qmstart:900:root@pam:
type Handle struct {
	// Raw is the handle exactly as the server returned it.
	Raw       string
	Node      string
	PID       uint64
	PStart    uint64
	StartTime uint64
	Type      string
	// ID is the object the task works on (usually a VM id). May be empty.
	ID   string
	User string
}

// ParseHandle parses a task handle. Anything that does not have the exact
// UPID shape is a malformed response; it is never treated as a missing task.
func ParseHandle(raw string) (Handle, error) {
	fields := strings.Split(raw, ":")

	// prefix + 7 fields + the empty string after the trailing colon
	if len(fields) != upidFields+2 {
		return Handle{}, proxmox.NewMalformedResponseError("task handle %q: expected %d fields, got %d", raw, upidFields, len(fields)-1)
	}
	if fields[0] != upidPrefix {
		return Handle{}, proxmox.NewMalformedResponseError("task handle %q: missing %s prefix", raw, upidPrefix)
	}
	if fields[len(fields)-1] != "" {
		return Handle{}, proxmox.NewMalformedResponseError("task handle %q: missing trailing delimiter", raw)
	}

	h := Handle{
		Raw:  raw,
		Node: fields[1],
		Type: fields[5],
		ID:   fields[6],
		User: fields[7],
	}

	if h.Node == "" {
		return Handle{}, proxmox.NewMalformedResponseError("task handle %q: empty node", raw)
	}
	if h.Type == "" {
		return Handle{}, proxmox.NewMalformedResponseError("task handle %q: empty task type", raw)
	}
	if h.User == "" {
		return Handle{}, proxmox.NewMalformedResponseError("task handle %q: empty user", raw)
	}

	var err error
	if h.PID, err = parseHex(raw, "pid", fields[2]); err != nil {
		return Handle{}, err
	}
	if h.PStart, err = parseHex(raw, "pstart", fields[3]); err != nil {
		return Handle{}, err
	}
	if h.StartTime, err = parseHex(raw, "starttime", fields[4]); err != nil {
		return Handle{}, err
	}

	return h, nil
}

func parseHex(raw, name, field string) (uint64, error) {
	v, err := strconv.ParseUint(field, 16, 64)
	if err != nil {
		return 0, proxmox.NewMalformedResponseError("task handle %q: %s %q is not hexadecimal", raw, name, field)
	}
	return v, nil
}

// String returns the raw handle.
func (h Handle) String() string {
	return h.Raw
}

// IsImgCopy reports whether the handle belongs to an image copy (upload) task.
func (h Handle) IsImgCopy() bool {
	return h.Type == TypeImgCopy
}
