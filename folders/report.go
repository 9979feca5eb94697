package folders

import (
	"fmt"

	"github.com/example/image-browser/apperr"
)

// DefaultReportCap bounds the per-object results returned in a report.
const DefaultReportCap = 100

// ItemResult is the outcome for one object in a batch.
type ItemResult struct {
	Key     string `json:"key"`
	NewKey  string `json:"newKey,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MoveReport summarises a move or rename.
type MoveReport struct {
	Source           string       `json:"sourcePath"`
	Target           string       `json:"targetPath"`
	TotalObjects     int          `json:"totalObjects"`
	MovedFiles       int          `json:"movedFiles"`
	MovedFolders     int          `json:"movedFolders"`
	Failed           int          `json:"failed"`
	TotalSize        int64        `json:"totalSize"`
	CreatedParents   []string     `json:"createdParents,omitempty"`
	Results          []ItemResult `json:"results"`
	ResultsTruncated bool         `json:"resultsTruncated"`
}

// DeleteReport summarises a recursive delete.
type DeleteReport struct {
	Path             string       `json:"path"`
	TotalObjects     int          `json:"totalObjects"`
	DeletedFiles     int          `json:"deletedFiles"`
	DeletedFolders   int          `json:"deletedFolders"`
	DeletedSize      int64        `json:"deletedSize"`
	Failed           int          `json:"failed"`
	ListingTruncated bool         `json:"listingTruncated"`
	Results          []ItemResult `json:"results"`
	ResultsTruncated bool         `json:"resultsTruncated"`
}

// capResults keeps failures first so they survive truncation.
func capResults(results []ItemResult, limit int) ([]ItemResult, bool) {
	if limit <= 0 {
		limit = DefaultReportCap
	}
	if len(results) <= limit {
		return results, false
	}

	capped := make([]ItemResult, 0, limit)
	for _, r := range results {
		if !r.Success && len(capped) < limit {
			capped = append(capped, r)
		}
	}
	for _, r := range results {
		if r.Success && len(capped) < limit {
			capped = append(capped, r)
		}
	}
	return capped, true
}

// allFailed returns a store error when a non-empty batch had no success.
func allFailed(operation string, total, failed int) error {
	if total > 0 && failed == total {
		return apperr.New(apperr.KindStore, fmt.Sprintf("%s failed for all %d objects", operation, total))
	}
	return nil
}
