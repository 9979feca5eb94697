// Package upload stores incoming images, resolving name conflicts and
// keeping the folders they land in listable.
package upload

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/folders"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/pathsafe"
	"github.com/example/image-browser/storage"
)

// DefaultMaxSize is the per-file upload limit.
const DefaultMaxSize = 10 << 20

// Metadata stored with every upload.
const (
	MetaOriginalName = "original-name"
	MetaBatchID      = "batch-id"
	MetaUploadedAt   = "uploaded-at"
)

// Notes attached to results.
const (
	NoteOverwritten = "File was overwritten"
	NoteRenamed     = "File was renamed to avoid conflict"
	NoteSkipped     = "File already exists and was skipped"
)

const msgInvalidType = "Invalid file type. Only images are allowed."

// Incoming is a file waiting to be stored.
type Incoming struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Status tags a Result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome for one file. Which fields are set depends on
// Status: success carries FinalPath, URL and Size; skipped carries
// FinalPath and Note; failed carries Error.
type Result struct {
	Status       Status `json:"status"`
	OriginalName string `json:"originalName"`
	FinalPath    string `json:"finalPath,omitempty"`
	URL          string `json:"url,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Note         string `json:"note,omitempty"`
	Error        string `json:"error,omitempty"`
}

func succeeded(name, path, url string, size int64, note string) Result {
	return Result{Status: StatusSuccess, OriginalName: name, FinalPath: path, URL: url, Size: size, Note: note}
}

func skipped(name, path string) Result {
	return Result{Status: StatusSkipped, OriginalName: name, FinalPath: path, Note: NoteSkipped}
}

func failed(name string, err error) Result {
	return Result{Status: StatusFailed, OriginalName: name, Error: apperr.Message(err)}
}

// Summary counts results by status.
type Summary struct {
	TotalFiles        int `json:"totalFiles"`
	SuccessfulUploads int `json:"successfulUploads"`
	FailedUploads     int `json:"failedUploads"`
	SkippedUploads    int `json:"skippedUploads"`
}

// Report is the outcome of a batch.
type Report struct {
	BatchID        string   `json:"batchId"`
	Results        []Result `json:"results"`
	Summary        Summary  `json:"summary"`
	CreatedFolders []string `json:"createdFolders"`
}

// BatchRequest describes a batch upload. FolderStructure maps a file name
// to the relative path it should be stored at; TargetPath prefixes every
// file.
type BatchRequest struct {
	Files           []Incoming
	FolderStructure map[string]string
	TargetPath      string
	Policy          Policy
}

// SimpleResult is the per-file response of the single-folder upload.
type SimpleResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Options configures an Orchestrator.
type Options struct {
	Sanitizer pathsafe.Sanitizer
	MaxSize   int64
	URLs      keys.URLBuilder
}

// Orchestrator runs uploads.
type Orchestrator struct {
	store     storage.Storage
	resolver  *Resolver
	folders   *folders.Engine
	sanitizer pathsafe.Sanitizer
	maxSize   int64
	urls      keys.URLBuilder
	now       func() time.Time
	newID     func() string
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(store storage.Storage, resolver *Resolver, engine *folders.Engine, opts Options) *Orchestrator {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	return &Orchestrator{
		store:     store,
		resolver:  resolver,
		folders:   engine,
		sanitizer: opts.Sanitizer,
		maxSize:   opts.MaxSize,
		urls:      opts.URLs,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// UploadBatch stores every file independently. Files are handled one at a
// time so that rename probing sees earlier files of the same batch.
// Successful writes are never rolled back.
func (o *Orchestrator) UploadBatch(ctx context.Context, req BatchRequest) (*Report, error) {
	if len(req.Files) == 0 {
		return nil, apperr.New(apperr.KindValidation, "No files provided")
	}
	target, err := o.sanitizer.Sanitize(req.TargetPath)
	if err != nil {
		return nil, err
	}
	if req.Policy == "" {
		req.Policy = PolicyRename
	}

	report := &Report{
		BatchID:        o.newID(),
		Results:        make([]Result, 0, len(req.Files)),
		CreatedFolders: []string{},
	}
	uploadedAt := o.now().UTC().Format(time.RFC3339)
	used := make(map[string]bool)

	for _, file := range req.Files {
		relative := file.Name
		if p, ok := req.FolderStructure[file.Name]; ok && p != "" {
			relative = p
		}

		result, folder := o.process(ctx, file, target, relative, req.Policy, report.BatchID, uploadedAt)
		report.Results = append(report.Results, result)

		switch result.Status {
		case StatusSuccess:
			report.Summary.SuccessfulUploads++
			used[folder] = true
		case StatusSkipped:
			report.Summary.SkippedUploads++
		default:
			report.Summary.FailedUploads++
		}
	}
	report.Summary.TotalFiles = len(report.Results)

	usedFolders := make([]string, 0, len(used))
	for folder := range used {
		if folder != "" {
			usedFolders = append(usedFolders, folder)
		}
	}
	sort.Strings(usedFolders)
	for _, folder := range usedFolders {
		created, err := o.folders.EnsurePlaceholder(ctx, folder)
		if err != nil {
			logrus.WithError(err).WithField("folder", folder).Warn("Failed to create folder placeholder")
			continue
		}
		if created {
			report.CreatedFolders = append(report.CreatedFolders, folder)
		}
	}

	logrus.WithFields(logrus.Fields{
		"batch":      report.BatchID,
		"total":      report.Summary.TotalFiles,
		"successful": report.Summary.SuccessfulUploads,
		"failed":     report.Summary.FailedUploads,
		"skipped":    report.Summary.SkippedUploads,
	}).Info("Batch upload finished")

	// Skipped files count as handled; only a batch where every file failed is an error.
	if report.Summary.FailedUploads == report.Summary.TotalFiles {
		return report, apperr.Newf(apperr.KindStore, "Upload failed for all %d files", report.Summary.TotalFiles)
	}
	return report, nil
}

// UploadSimple stores files directly in folder, replacing existing ones.
func (o *Orchestrator) UploadSimple(ctx context.Context, folder string, files []Incoming) ([]SimpleResult, error) {
	if len(files) == 0 {
		return nil, apperr.New(apperr.KindValidation, "No files provided")
	}
	target, err := o.sanitizer.Sanitize(folder)
	if err != nil {
		return nil, err
	}

	batchID := o.newID()
	uploadedAt := o.now().UTC().Format(time.RFC3339)
	results := make([]SimpleResult, 0, len(files))
	for _, file := range files {
		r, _ := o.process(ctx, file, target, file.Name, PolicyOverwrite, batchID, uploadedAt)
		results = append(results, SimpleResult{
			Name:    file.Name,
			Success: r.Status == StatusSuccess,
			Key:     r.FinalPath,
			URL:     r.URL,
			Error:   r.Error,
		})
	}
	return results, nil
}

// process validates and stores one file, returning its result and the
// folder it was written to.
func (o *Orchestrator) process(ctx context.Context, file Incoming, target, relative string, policy Policy, batchID, uploadedAt string) (Result, string) {
	if !keys.IsAllowedContentType(file.ContentType) {
		return failed(file.Name, apperr.New(apperr.KindValidation, msgInvalidType)), ""
	}
	if file.Size > o.maxSize {
		return failed(file.Name, apperr.Newf(apperr.KindValidation,
			"File too large. Maximum size is %s.", humanize.IBytes(uint64(o.maxSize)))), ""
	}

	folder, name, err := o.splitDestination(target, relative)
	if err != nil {
		return failed(file.Name, err), ""
	}
	candidate := pathsafe.Join(folder, name)

	resolution, err := o.resolver.Resolve(ctx, candidate, policy)
	if err != nil {
		return failed(file.Name, err), ""
	}
	if resolution.Skip {
		return skipped(file.Name, resolution.Path), ""
	}

	if err := o.write(ctx, file, resolution.Path, batchID, uploadedAt); err != nil {
		return failed(file.Name, err), ""
	}

	note := ""
	switch {
	case resolution.Renamed:
		note = NoteRenamed
	case policy == PolicyOverwrite:
		note = NoteOverwritten
	}

	logrus.WithFields(logrus.Fields{
		"key":  resolution.Path,
		"size": humanize.Bytes(uint64(file.Size)),
	}).Debug("File uploaded")

	return succeeded(file.Name, resolution.Path, o.urls.URL(resolution.Path), file.Size, note), folder
}

// splitDestination sanitizes the folder part and validates the file name
// part of target/relative separately.
func (o *Orchestrator) splitDestination(target, relative string) (string, string, error) {
	raw := relative
	if target != "" {
		raw = target + "/" + strings.TrimLeft(relative, "/")
	}

	dir, name := "", raw
	if idx := strings.LastIndex(raw, "/"); idx >= 0 {
		dir, name = raw[:idx], raw[idx+1:]
	}

	folder, err := o.sanitizer.Sanitize(dir)
	if err != nil {
		return "", "", err
	}
	if err := pathsafe.ValidateFileName(name); err != nil {
		return "", "", err
	}
	if !keys.IsImage(name) {
		return "", "", apperr.New(apperr.KindValidation, msgInvalidType)
	}
	return folder, name, nil
}

func (o *Orchestrator) write(ctx context.Context, file Incoming, key, batchID, uploadedAt string) error {
	if file.Open == nil {
		return apperr.New(apperr.KindValidation, "File has no content")
	}
	body, err := file.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindStore, "Failed to read uploaded file", err)
	}
	defer body.Close()

	err = o.store.Put(ctx, key, body, file.Size, storage.PutOptions{
		ContentType: strings.ToLower(file.ContentType),
		Metadata: map[string]string{
			MetaOriginalName: file.Name,
			MetaBatchID:      batchID,
			MetaUploadedAt:   uploadedAt,
		},
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStore, fmt.Sprintf("Failed to store %s", key), err)
	}
	return nil
}
