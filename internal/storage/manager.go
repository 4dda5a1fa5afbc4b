package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jbweber/pvforge/internal/metrics"
	"github.com/jbweber/pvforge/internal/proxmox"
	"github.com/jbweber/pvforge/internal/task"
)

// Timeout message keys of storage tasks.
const (
	UploadTimeoutKey     = "upload_timeout"
	DeleteFileTimeoutKey = "delete_file_timeout"
)

// apiClient is the subset of *proxmox.Client the storage manager needs.
//
// In production, this is satisfied by *proxmox.Client.
// In tests, this is satisfied by mock implementations.
type apiClient interface {
	Get(ctx context.Context, path string) (*proxmox.Document, error)
	Delete(ctx context.Context, path string) (*proxmox.Document, error)
	Upload(ctx context.Context, path string, fields map[string]string, filename string, content io.Reader) (*proxmox.Document, error)
}

// taskWaiter waits for asynchronous tasks.
//
// In production, this is satisfied by *task.Poller.
type taskWaiter interface {
	WaitForCompletion(ctx context.Context, upid, timeoutKey string) (task.ExitStatus, error)
}

// Manager lists and uploads files in Proxmox storages.
type Manager struct {
	client apiClient
	tasks  taskWaiter
	logger zerolog.Logger
}

// NewManager creates a new storage manager.
func NewManager(client apiClient, tasks taskWaiter, logger zerolog.Logger) *Manager {
	return &Manager{
		client: client,
		tasks:  tasks,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

func contentPath(node, storage string) string {
	return fmt.Sprintf("/nodes/%s/storage/%s/content", url.PathEscape(node), url.PathEscape(storage))
}

// ListFiles lists the volumes in a storage.
func (m *Manager) ListFiles(ctx context.Context, node, storage string) ([]Entry, error) {
	doc, err := m.client.Get(ctx, contentPath(node, storage))
	if err != nil {
		return nil, fmt.Errorf("failed to list storage %s on node %s: %w", storage, node, err)
	}

	var contents []proxmox.StorageContent
	if err := doc.Decode(&contents); err != nil {
		return nil, fmt.Errorf("failed to decode storage listing: %w", err)
	}

	entries := make([]Entry, 0, len(contents))
	for _, c := range contents {
		entries = append(entries, Entry{
			VolID:   c.VolID,
			Name:    fileName(c.VolID),
			Content: c.Content,
			Format:  c.Format,
			Size:    c.Size,
		})
	}
	return entries, nil
}

// UploadFile uploads a local file to a storage and waits for the upload
// task to finish.
//
// The upload is skipped when the storage already holds a file whose name
// contains the base name of file. Only names are compared, never content,
// and the local file is not opened in that case.
//
// An empty content type is derived from the file's detected format. A
// declared iso content type is checked against the file's content.
func (m *Manager) UploadFile(ctx context.Context, file string, content Content, node, storage string) (UploadResult, error) {
	name := filepath.Base(file)
	if res, found, err := m.existing(ctx, name, node, storage); err != nil || found {
		return res, err
	}

	f, err := os.Open(file)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	content, err = resolveContent(f, content)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to check %s: %w", file, err)
	}

	return m.upload(ctx, name, f, content, node, storage)
}

// UploadData uploads in-memory data under name. It follows the same rules
// as UploadFile.
func (m *Manager) UploadData(ctx context.Context, name string, data []byte, content Content, node, storage string) (UploadResult, error) {
	if res, found, err := m.existing(ctx, name, node, storage); err != nil || found {
		return res, err
	}

	r := bytes.NewReader(data)
	content, err := resolveContent(r, content)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to check %s: %w", name, err)
	}

	return m.upload(ctx, name, r, content, node, storage)
}

// existing reports a skipped result when a file whose name contains name is
// already in the storage.
func (m *Manager) existing(ctx context.Context, name, node, storage string) (UploadResult, bool, error) {
	files, err := m.ListFiles(ctx, node, storage)
	if err != nil {
		return UploadResult{}, false, err
	}
	for _, e := range files {
		if strings.Contains(e.Name, name) {
			m.logger.Info().Str("file", name).Str("node", node).Str("storage", storage).
				Str("volid", e.VolID).Msg("File already in storage, skipping upload")
			metrics.UploadsSkippedTotal.Inc()
			return UploadResult{File: name, VolID: e.VolID, Skipped: true}, true, nil
		}
	}
	return UploadResult{}, false, nil
}

func resolveContent(r io.ReaderAt, content Content) (Content, error) {
	if content == "" {
		format, err := DetectFormat(r)
		if err != nil {
			return "", err
		}
		return ContentFor(format)
	}

	if !content.Valid() {
		return "", fmt.Errorf("unsupported content type %q", content)
	}
	if content == ContentISO {
		format, err := DetectFormat(r)
		if err != nil {
			return "", err
		}
		if format != FormatISO {
			return "", fmt.Errorf("content type iso requires an ISO9660 image, detected %s", format)
		}
	}
	return content, nil
}

func (m *Manager) upload(ctx context.Context, name string, r io.Reader, content Content, node, storage string) (UploadResult, error) {
	if err := checkFileName(name, content); err != nil {
		return UploadResult{}, err
	}

	result := UploadResult{File: name, VolID: volumeID(storage, content, name)}
	logger := m.logger.With().Str("file", name).Str("node", node).Str("storage", storage).Logger()
	logger.Info().Str("content", string(content)).Msg("Uploading file")

	fields := map[string]string{
		"content": string(content),
		"node":    node,
		"storage": storage,
	}
	path := fmt.Sprintf("/nodes/%s/storage/%s/upload", url.PathEscape(node), url.PathEscape(storage))

	doc, err := m.client.Upload(ctx, path, fields, name, r)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	upid, err := doc.String()
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to read upload task: %w", err)
	}

	exit, err := m.tasks.WaitForCompletion(ctx, upid, UploadTimeoutKey)
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed waiting for upload of %s: %w", name, err)
	}
	result.ExitStatus = exit

	if exit.Succeeded() {
		logger.Info().Msg("Upload finished")
	} else {
		logger.Warn().Str("exitstatus", string(exit)).Msg("Upload task failed")
	}
	return result, nil
}

// DeleteFile removes a volume from a storage. Older nodes delete
// synchronously and return no task; newer ones return a task that is
// waited for.
func (m *Manager) DeleteFile(ctx context.Context, node, storage, volID string) (task.ExitStatus, error) {
	path := contentPath(node, storage) + "/" + url.PathEscape(volID)

	doc, err := m.client.Delete(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to delete %s: %w", volID, err)
	}
	if doc.IsNull() {
		return task.ExitOK, nil
	}

	upid, err := doc.String()
	if err != nil {
		return "", fmt.Errorf("failed to read delete task: %w", err)
	}
	return m.tasks.WaitForCompletion(ctx, upid, DeleteFileTimeoutKey)
}
