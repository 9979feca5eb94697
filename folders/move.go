package folders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/pathsafe"
	"github.com/example/image-browser/storage"
)

// Metadata stamped on every copy made by a move.
const (
	MetaOriginalKey = "original-key"
	MetaMovedAt     = "moved-at"
)

// MoveRequest describes a move of one folder to another path.
type MoveRequest struct {
	Source        string
	Target        string
	CreateParents bool
}

// Move relocates every object under Source to Target by copying all of
// them first and then deleting the originals whose copy succeeded.
// Preconditions are checked before anything is written.
func (e *Engine) Move(ctx context.Context, req MoveRequest) (*MoveReport, error) {
	source, err := e.sanitizer.Sanitize(req.Source)
	if err != nil {
		return nil, err
	}
	target, err := e.sanitizer.Sanitize(req.Target)
	if err != nil {
		return nil, err
	}

	switch {
	case source == "":
		return nil, apperr.New(apperr.KindValidation, "Source path is required")
	case target == "":
		return nil, apperr.New(apperr.KindValidation, "Target path is required")
	case source == target:
		return nil, apperr.New(apperr.KindValidation, "Source and target paths must be different")
	case strings.HasPrefix(target+"/", source+"/"):
		return nil, apperr.New(apperr.KindValidation, "Cannot move a folder into itself")
	}

	return e.transfer(ctx, source, target, req.CreateParents)
}

// Rename renames a top-level folder.
func (e *Engine) Rename(ctx context.Context, oldName, newName string) (*MoveReport, error) {
	old, err := e.sanitizer.Sanitize(oldName)
	if err != nil {
		return nil, err
	}
	if old == "" || strings.Contains(old, "/") {
		return nil, apperr.New(apperr.KindValidation, "Invalid folder name")
	}
	if err := pathsafe.ValidateFolderName(newName); err != nil {
		return nil, err
	}
	if old == newName {
		return nil, apperr.New(apperr.KindValidation, "New name must be different from the current name")
	}

	return e.transfer(ctx, old, newName, false)
}

func (e *Engine) transfer(ctx context.Context, source, target string, createParents bool) (*MoveReport, error) {
	if !e.Exists(ctx, source) {
		return nil, apperr.New(apperr.KindNotFound, "Source folder does not exist")
	}
	if e.Exists(ctx, target) {
		return nil, apperr.New(apperr.KindAlreadyExists, "Target folder already exists")
	}

	listed, err := e.lister.ListAllDescendants(ctx, source, 0)
	if err != nil {
		return nil, err
	}
	if listed.Truncated {
		return nil, apperr.New(apperr.KindValidation,
			fmt.Sprintf("Folder holds more than %d objects and cannot be moved", e.lister.Ceiling()))
	}

	report := &MoveReport{
		Source:       source,
		Target:       target,
		TotalObjects: len(listed.Objects),
	}

	if createParents {
		if parent := pathsafe.Parent(target); parent != "" {
			created, err := e.ensureChain(ctx, parent)
			report.CreatedParents = created
			if err != nil {
				return nil, err
			}
		}
	}

	sourcePrefix := keys.FolderPrefix(source)
	targetPrefix := keys.FolderPrefix(target)
	objects := listed.Objects
	results := make([]ItemResult, len(objects))
	movedAt := e.now().UTC().Format(time.RFC3339)

	copyErrs := runWaves(ctx, len(objects), e.batchSize, func(ctx context.Context, i int) error {
		src := objects[i].Key
		dst := targetPrefix + strings.TrimPrefix(src, sourcePrefix)
		results[i] = ItemResult{Key: src, NewKey: dst}
		return e.copyObject(ctx, src, dst, movedAt)
	})

	// Only originals with a confirmed copy are removed.
	var copied []int
	for i, err := range copyErrs {
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		copied = append(copied, i)
	}

	deleteErrs := runWaves(ctx, len(copied), e.batchSize, func(ctx context.Context, j int) error {
		return e.store.Delete(ctx, objects[copied[j]].Key)
	})

	placeholderMoved := false
	for j, i := range copied {
		if err := deleteErrs[j]; err != nil {
			results[i].Error = "copied but original not removed: " + err.Error()
			continue
		}
		results[i].Success = true
		report.TotalSize += objects[i].Size
		if keys.IsPlaceholder(objects[i].Key) {
			report.MovedFolders++
			if results[i].NewKey == keys.PlaceholderKey(target) {
				placeholderMoved = true
			}
		} else {
			report.MovedFiles++
		}
	}
	report.Failed = len(objects) - report.MovedFiles - report.MovedFolders

	// A move where nothing landed must leave the target absent so it can be retried.
	if !placeholderMoved && report.MovedFiles+report.MovedFolders > 0 {
		if err := e.putPlaceholder(ctx, target); err != nil {
			logrus.WithError(err).WithField("path", target).Warn("Failed to create target placeholder")
		}
	}

	report.Results, report.ResultsTruncated = capResults(results, e.reportCap)

	logrus.WithFields(logrus.Fields{
		"source":  source,
		"target":  target,
		"files":   report.MovedFiles,
		"folders": report.MovedFolders,
		"failed":  report.Failed,
		"size":    humanize.Bytes(uint64(report.TotalSize)),
	}).Info("Folder moved")

	return report, allFailed("Move", report.TotalObjects, report.Failed)
}

func (e *Engine) copyObject(ctx context.Context, src, dst, movedAt string) error {
	obj, err := e.store.Get(ctx, src)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	metadata := make(map[string]string, len(obj.Info.Metadata)+2)
	for k, v := range obj.Info.Metadata {
		metadata[k] = v
	}
	metadata[MetaOriginalKey] = src
	metadata[MetaMovedAt] = movedAt

	logrus.WithFields(logrus.Fields{
		"from": src,
		"to":   dst,
	}).Debug("Copying object")

	return e.store.Put(ctx, dst, obj.Body, obj.Info.Size, storage.PutOptions{
		ContentType: obj.Info.ContentType,
		Metadata:    metadata,
	})
}
