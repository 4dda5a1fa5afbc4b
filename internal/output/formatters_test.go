package output

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/pvforge/internal/proxmox"
)

func testResources() []proxmox.ClusterResource {
	return []proxmox.ClusterResource{
		{
			ID: "qemu/903", VMID: 903, Name: "web", Node: "pve1", Type: "qemu", Status: "running",
			MaxCPU: 2, MaxMem: 2048 * mib, MaxDisk: 32 * gib, Uptime: 300, Tags: "prod;web",
		},
		{
			ID: "lxc/901", VMID: 901, Name: "cache", Node: "pve2", Type: "lxc", Status: "stopped",
			MaxCPU: 1, MaxMem: 512 * mib, MaxDisk: 8 * gib,
		},
		{
			ID: "qemu/9000", VMID: 9000, Name: "fedora-tmpl", Node: "pve1", Type: "qemu", Status: "stopped",
			Template: true,
		},
	}
}

func testNodes() []proxmox.Node {
	return []proxmox.Node{
		{Node: "pve1", Status: "online", CPU: 0.25, MaxCPU: 8, Mem: 4096 * mib, MaxMem: 32768 * mib, Uptime: 2 * 86400},
		{Node: "pve2", Status: "offline", MaxCPU: 16},
	}
}

func TestNewVM(t *testing.T) {
	vm := NewVM(testResources()[0])

	if vm.VMID != 903 || vm.Name != "web" || vm.Type != "qemu" || vm.Node != "pve1" {
		t.Errorf("NewVM() identity = %+v", vm)
	}
	if vm.MemoryMiB != 2048 {
		t.Errorf("MemoryMiB = %d, want 2048", vm.MemoryMiB)
	}
	if vm.DiskGiB != 32 {
		t.Errorf("DiskGiB = %d, want 32", vm.DiskGiB)
	}
	if len(vm.Tags) != 2 || vm.Tags[0] != "prod" || vm.Tags[1] != "web" {
		t.Errorf("Tags = %v, want [prod web]", vm.Tags)
	}

	if tags := NewVM(testResources()[1]).Tags; tags != nil {
		t.Errorf("untagged VM has tags %v", tags)
	}
}

func TestTableFormatter_FormatVMList(t *testing.T) {
	formatter := &TableFormatter{}
	output, err := formatter.FormatVMList(testResources())
	if err != nil {
		t.Fatalf("FormatVMList() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), output)
	}

	for _, want := range []string{"VMID", "NAME", "STATUS", "UPTIME"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("header missing %q: %s", want, lines[0])
		}
	}
	for _, want := range []string{"903", "web", "running", "2048 MiB", "5m", "prod,web"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row missing %q: %s", want, lines[1])
		}
	}
	if !strings.Contains(lines[3], "template") {
		t.Errorf("template not marked: %s", lines[3])
	}
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	formatter := &TableFormatter{NoHeaders: true}
	output, err := formatter.FormatVMList(testResources())
	if err != nil {
		t.Fatalf("FormatVMList() error = %v", err)
	}
	if strings.Contains(output, "VMID") {
		t.Errorf("output has header: %s", output)
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	formatter := &TableFormatter{}

	output, _ := formatter.FormatVMList(nil)
	if output != "No VMs found\n" {
		t.Errorf("FormatVMList(nil) = %q", output)
	}
	output, _ = formatter.FormatNodeList(nil)
	if output != "No nodes found\n" {
		t.Errorf("FormatNodeList(nil) = %q", output)
	}
}

func TestTableFormatter_FormatNodeList(t *testing.T) {
	formatter := &TableFormatter{}
	output, err := formatter.FormatNodeList(testNodes())
	if err != nil {
		t.Fatalf("FormatNodeList() error = %v", err)
	}

	for _, want := range []string{"pve1", "online", "25% of 8", "4096/32768 MiB", "2d", "pve2", "offline"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestYAMLFormatter_FormatVMList(t *testing.T) {
	formatter := &YAMLFormatter{}
	output, err := formatter.FormatVMList(testResources())
	if err != nil {
		t.Fatalf("FormatVMList() error = %v", err)
	}

	docs := strings.Split(output, "---\n")
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d:\n%s", len(docs), output)
	}

	var vm VM
	if err := yaml.Unmarshal([]byte(docs[0]), &vm); err != nil {
		t.Fatalf("document is not valid YAML: %v", err)
	}
	if vm.VMID != 903 || vm.MemoryMiB != 2048 {
		t.Errorf("first document = %+v", vm)
	}

	empty, _ := formatter.FormatVMList(nil)
	if empty != "" {
		t.Errorf("FormatVMList(nil) = %q, want empty", empty)
	}
}

func TestYAMLFormatter_FormatNodeList(t *testing.T) {
	formatter := &YAMLFormatter{}
	output, err := formatter.FormatNodeList(testNodes())
	if err != nil {
		t.Fatalf("FormatNodeList() error = %v", err)
	}

	var nodes []Node
	if err := yaml.Unmarshal([]byte(output), &nodes); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(nodes) != 2 || nodes[0].Name != "pve1" || nodes[0].MaxMemoryMiB != 32768 {
		t.Errorf("nodes = %+v", nodes)
	}
}

func TestJSONFormatter(t *testing.T) {
	formatter := &JSONFormatter{}

	output, err := formatter.FormatVMList(testResources())
	if err != nil {
		t.Fatalf("FormatVMList() error = %v", err)
	}
	var vms []map[string]any
	if err := json.Unmarshal([]byte(output), &vms); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(vms) != 3 {
		t.Fatalf("got %d VMs, want 3", len(vms))
	}
	if vms[0]["vmid"] != float64(903) || vms[0]["memory_mib"] != float64(2048) {
		t.Errorf("first VM = %v", vms[0])
	}
	if _, ok := vms[1]["template"]; ok {
		t.Errorf("non-template VM carries template field: %v", vms[1])
	}

	empty, _ := formatter.FormatVMList(nil)
	if empty != "[]\n" {
		t.Errorf("FormatVMList(nil) = %q, want []", empty)
	}

	output, err = formatter.FormatNodeList(testNodes())
	if err != nil {
		t.Fatalf("FormatNodeList() error = %v", err)
	}
	if !strings.Contains(output, `"name": "pve1"`) {
		t.Errorf("node output missing name:\n%s", output)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "table format", opts: Options{Format: FormatTable}},
		{name: "yaml format", opts: Options{Format: FormatYAML}},
		{name: "json format", opts: Options{Format: FormatJSON}},
		{name: "invalid format", opts: Options{Format: "invalid"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := NewFormatter(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && formatter == nil {
				t.Error("NewFormatter() returned nil formatter")
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	for _, format := range []string{"table", "yaml", "json"} {
		if err := ValidateFormat(format); err != nil {
			t.Errorf("ValidateFormat(%q) error = %v", format, err)
		}
	}
	for _, format := range []string{"xml", ""} {
		if err := ValidateFormat(format); err == nil {
			t.Errorf("ValidateFormat(%q) succeeded, want error", format)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m"},
		{90 * time.Minute, "1h"},
		{48 * time.Hour, "2d"},
		{14 * 24 * time.Hour, "2w"},
		{60 * 24 * time.Hour, "60d"},
		{400 * 24 * time.Hour, "1y"},
		{-time.Second, "unknown"},
	}

	for _, tt := range tests {
		if got := formatAge(tt.duration); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.duration, got, tt.want)
		}
	}
}
