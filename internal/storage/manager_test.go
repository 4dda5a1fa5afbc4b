package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/pvforge/internal/metrics"
	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/task"
)

func newTestManager() (*Manager, *mockAPIClient, *mockTaskWaiter) {
	client := newMockAPIClient()
	tasks := newMockTaskWaiter()
	return NewManager(client, tasks, zerolog.Nop()), client, tasks
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestListFiles(t *testing.T) {
	mgr, client, _ := newTestManager()
	client.withFiles("local:iso/fedora-42.iso", "local:vztmpl/debian-12.tar.zst")

	files, err := mgr.ListFiles(context.Background(), "pve1", "local")
	require.NoError(t, err)

	assert.Equal(t, []string{"/nodes/pve1/storage/local/content"}, client.getCalls)
	require.Len(t, files, 2)
	assert.Equal(t, "fedora-42.iso", files[0].Name)
	assert.Equal(t, "local:iso/fedora-42.iso", files[0].VolID)
	assert.Equal(t, "debian-12.tar.zst", files[1].Name)
	assert.Equal(t, int64(1024), files[1].Size)
}

func TestListFiles_Error(t *testing.T) {
	mgr, client, _ := newTestManager()
	client.getFunc = func(path string) (*proxmox.Document, error) {
		return nil, &proxmox.Error{Kind: proxmox.KindServer, Message: "500"}
	}

	_, err := mgr.ListFiles(context.Background(), "pve1", "local")
	assert.ErrorIs(t, err, proxmox.ErrServer)
}

func TestUploadFile(t *testing.T) {
	mgr, client, tasks := newTestManager()
	iso := buildISO(t)
	path := writeFile(t, "fedora-42.iso", iso)

	res, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Equal(t, task.ExitOK, res.ExitStatus)
	assert.Equal(t, "fedora-42.iso", res.File)
	assert.Equal(t, "local:iso/fedora-42.iso", res.VolID)

	require.Len(t, client.uploadCalls, 1)
	call := client.uploadCalls[0]
	assert.Equal(t, "/nodes/pve1/storage/local/upload", call.path)
	assert.Equal(t, map[string]string{"content": "iso", "node": "pve1", "storage": "local"}, call.fields)
	assert.Equal(t, "fedora-42.iso", call.filename)
	assert.Equal(t, iso, call.body, "the whole file is streamed")

	require.Len(t, tasks.waitCalls, 1)
	assert.Equal(t, waitCall{upid: uploadUPID, timeoutKey: "upload_timeout"}, tasks.waitCalls[0])
}

func TestUploadFile_SkipsExistingName(t *testing.T) {
	mgr, client, tasks := newTestManager()
	client.withFiles("local:iso/fedora-42.iso")
	path := writeFile(t, "fedora-42.iso", buildISO(t))

	before := testutil.ToFloat64(metrics.UploadsSkippedTotal)

	res, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Equal(t, "local:iso/fedora-42.iso", res.VolID)
	assert.Empty(t, res.ExitStatus)
	assert.Empty(t, client.uploadCalls, "no upload request when the name exists")
	assert.Empty(t, tasks.waitCalls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UploadsSkippedTotal))
}

func TestUploadFile_NameMatchIsContainment(t *testing.T) {
	mgr, client, _ := newTestManager()
	// A storage file whose name contains the base name counts as present.
	client.withFiles("local:iso/mirror-fedora-42.iso")
	path := writeFile(t, "fedora-42.iso", buildISO(t))

	res, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, client.uploadCalls)
}

func TestUploadFile_SkipBeforeLocalChecks(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "local file missing", path: func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "installer.iso")
		}},
		{name: "local file not an ISO", path: func(t *testing.T) string {
			return writeFile(t, "installer.iso", qcow2Image())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, client, tasks := newTestManager()
			client.withFiles("local:iso/installer.iso")

			res, err := mgr.UploadFile(context.Background(), tt.path(t), ContentISO, "pve1", "local")
			require.NoError(t, err)

			assert.True(t, res.Skipped)
			assert.Equal(t, "installer.iso", res.File)
			assert.Equal(t, "local:iso/installer.iso", res.VolID)
			assert.Equal(t, []string{"/nodes/pve1/storage/local/content"}, client.getCalls)
			assert.Empty(t, client.uploadCalls)
			assert.Empty(t, tasks.waitCalls)
		})
	}
}

func TestUploadData_SkipsExistingName(t *testing.T) {
	mgr, client, _ := newTestManager()
	client.withFiles("local:iso/pvforge-903-1a2b3c4d-cidata.iso")

	// The data is never inspected once the name is present.
	res, err := mgr.UploadData(context.Background(), "pvforge-903-1a2b3c4d-cidata.iso", []byte("not an iso"), ContentISO, "pve1", "local")
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "local:iso/pvforge-903-1a2b3c4d-cidata.iso", res.VolID)
	assert.Empty(t, client.uploadCalls)
}

func TestUploadFile_ListingErrorStopsUpload(t *testing.T) {
	mgr, client, _ := newTestManager()
	client.getFunc = func(path string) (*proxmox.Document, error) {
		return nil, &proxmox.Error{Kind: proxmox.KindConnection, Message: "connection refused"}
	}
	path := writeFile(t, "fedora-42.iso", buildISO(t))

	_, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	assert.ErrorIs(t, err, proxmox.ErrConnection)
	assert.Empty(t, client.uploadCalls)
}

func TestUploadFile_DetectsContent(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		data        func(t *testing.T) []byte
		wantContent string
	}{
		{name: "iso", file: "install.iso", data: buildISO, wantContent: "iso"},
		{name: "qcow2", file: "noble.qcow2", data: func(t *testing.T) []byte { return qcow2Image() }, wantContent: "import"},
		{name: "raw", file: "disk.raw", data: func(t *testing.T) []byte { return rawImage() }, wantContent: "import"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, client, _ := newTestManager()
			path := writeFile(t, tt.file, tt.data(t))

			_, err := mgr.UploadFile(context.Background(), path, "", "pve1", "local")
			require.NoError(t, err)
			require.Len(t, client.uploadCalls, 1)
			assert.Equal(t, tt.wantContent, client.uploadCalls[0].fields["content"])
		})
	}
}

func TestUploadFile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		content Content
		wantErr string
	}{
		{name: "iso content with qcow2 data", file: "fake.iso", data: qcow2Image(), content: ContentISO, wantErr: "requires an ISO9660 image"},
		{name: "unknown content type", file: "x.iso", data: qcow2Image(), content: "backup", wantErr: "unsupported content type"},
		{name: "undetectable data", file: "blob.bin", data: make([]byte, 512), wantErr: "unsupported image"},
		{name: "extension mismatch", file: "noble.iso", data: qcow2Image(), wantErr: "import content requires"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, client, _ := newTestManager()
			path := writeFile(t, tt.file, tt.data)

			_, err := mgr.UploadFile(context.Background(), path, tt.content, "pve1", "local")
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Empty(t, client.uploadCalls)
		})
	}
}

func TestUploadFile_MissingFile(t *testing.T) {
	mgr, _, _ := newTestManager()

	_, err := mgr.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.iso"), ContentISO, "pve1", "local")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUploadFile_TaskTimeoutPropagates(t *testing.T) {
	mgr, _, tasks := newTestManager()
	tasks.waitFunc = func(upid, timeoutKey string) (task.ExitStatus, error) {
		return "", proxmox.NewTimeoutError(timeoutKey)
	}
	path := writeFile(t, "fedora-42.iso", buildISO(t))

	_, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	require.Error(t, err)
	assert.ErrorIs(t, err, proxmox.ErrTimeout)
	assert.Equal(t, "upload_timeout", proxmox.MessageKey(err))
}

func TestUploadFile_FailedTask(t *testing.T) {
	mgr, _, tasks := newTestManager()
	tasks.waitFunc = func(upid, timeoutKey string) (task.ExitStatus, error) {
		return "storage 'local' is full", nil
	}
	path := writeFile(t, "fedora-42.iso", buildISO(t))

	res, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	require.NoError(t, err)
	assert.False(t, res.ExitStatus.Succeeded())
	assert.Equal(t, task.ExitStatus("storage 'local' is full"), res.ExitStatus)
}

func TestUploadFile_GatewayError(t *testing.T) {
	mgr, client, tasks := newTestManager()
	client.uploadFunc = func(path string) (*proxmox.Document, error) {
		return nil, &proxmox.Error{Kind: proxmox.KindUnauthorized, Message: "401"}
	}
	path := writeFile(t, "fedora-42.iso", buildISO(t))

	_, err := mgr.UploadFile(context.Background(), path, ContentISO, "pve1", "local")
	assert.ErrorIs(t, err, proxmox.ErrUnauthorized)
	assert.Empty(t, tasks.waitCalls)
}

func TestUploadData(t *testing.T) {
	mgr, client, _ := newTestManager()
	iso := buildISO(t)

	res, err := mgr.UploadData(context.Background(), "pvforge-903-1a2b3c4d-cidata.iso", iso, ContentISO, "pve1", "local")
	require.NoError(t, err)

	assert.Equal(t, "local:iso/pvforge-903-1a2b3c4d-cidata.iso", res.VolID)
	require.Len(t, client.uploadCalls, 1)
	assert.Equal(t, iso, client.uploadCalls[0].body)
}

func TestDeleteFile(t *testing.T) {
	t.Run("synchronous", func(t *testing.T) {
		mgr, client, tasks := newTestManager()

		exit, err := mgr.DeleteFile(context.Background(), "pve1", "local", "local:iso/seed.iso")
		require.NoError(t, err)

		assert.Equal(t, task.ExitOK, exit)
		assert.Equal(t, []string{"/nodes/pve1/storage/local/content/local:iso%2Fseed.iso"}, client.deleteCalls)
		assert.Empty(t, tasks.waitCalls)
	})

	t.Run("task", func(t *testing.T) {
		mgr, client, tasks := newTestManager()
		upid := "UPID:pve1:00001234:00005678:65A1B2C3:imgdel:local@@iso/seed.iso:root@pam:"
		client.deleteFunc = func(path string) (*proxmox.Document, error) {
			return jsonDoc(upid), nil
		}

		_, err := mgr.DeleteFile(context.Background(), "pve1", "local", "local:iso/seed.iso")
		require.NoError(t, err)
		assert.Equal(t, []waitCall{{upid: upid, timeoutKey: "delete_file_timeout"}}, tasks.waitCalls)
	})

	t.Run("error", func(t *testing.T) {
		mgr, client, _ := newTestManager()
		client.deleteFunc = func(path string) (*proxmox.Document, error) {
			return nil, errors.New("boom")
		}

		_, err := mgr.DeleteFile(context.Background(), "pve1", "local", "local:iso/seed.iso")
		assert.ErrorContains(t, err, "boom")
	})
}
