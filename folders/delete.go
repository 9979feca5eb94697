package folders

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/pathsafe"
)

// DeleteRecursive removes every object under path. Individual failures
// are reported and never stop the remaining deletes.
func (e *Engine) DeleteRecursive(ctx context.Context, path string) (*DeleteReport, error) {
	clean, err := e.sanitizer.Sanitize(path)
	if err != nil {
		return nil, err
	}
	if clean == "" {
		return nil, apperr.New(apperr.KindValidation, "Folder path is required")
	}

	listed, err := e.lister.ListAllDescendants(ctx, clean, 0)
	if err != nil {
		return nil, err
	}
	if len(listed.Objects) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "Folder not found")
	}

	objects := listed.Objects
	report := &DeleteReport{
		Path:             clean,
		TotalObjects:     len(objects),
		ListingTruncated: listed.Truncated,
	}

	errs := runWaves(ctx, len(objects), e.batchSize, func(ctx context.Context, i int) error {
		return e.store.Delete(ctx, objects[i].Key)
	})

	results := make([]ItemResult, len(objects))
	for i, obj := range objects {
		results[i] = ItemResult{Key: obj.Key}
		if errs[i] != nil {
			results[i].Error = errs[i].Error()
			report.Failed++
			continue
		}
		results[i].Success = true
		report.DeletedSize += obj.Size
		if keys.IsPlaceholder(obj.Key) {
			report.DeletedFolders++
		} else {
			report.DeletedFiles++
		}
	}
	report.Results, report.ResultsTruncated = capResults(results, e.reportCap)

	logrus.WithFields(logrus.Fields{
		"path":    clean,
		"files":   report.DeletedFiles,
		"folders": report.DeletedFolders,
		"failed":  report.Failed,
		"size":    humanize.Bytes(uint64(report.DeletedSize)),
	}).Info("Folder deleted")

	return report, allFailed("Delete", report.TotalObjects, report.Failed)
}

// DeleteFolder deletes a top-level folder by name.
func (e *Engine) DeleteFolder(ctx context.Context, name string) (*DeleteReport, error) {
	if err := pathsafe.ValidateFolderName(name); err != nil {
		return nil, err
	}
	return e.DeleteRecursive(ctx, name)
}
