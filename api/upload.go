package api

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/upload"
)

// uploadSimple handles POST /api/admin/upload
func (s *Server) uploadSimple(c *gin.Context) {
	form, ok := s.multipartForm(c)
	if !ok {
		return
	}

	results, err := s.uploads.UploadSimple(c.Request.Context(), formValue(form, "folder"), incomingFiles(form))
	if err != nil {
		respondError(c, err)
		return
	}

	if s.metrics != nil {
		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		s.metrics.ObserveUploads(string(upload.StatusSuccess), succeeded)
		s.metrics.ObserveUploads(string(upload.StatusFailed), len(results)-succeeded)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

// uploadBatch handles POST /api/admin/upload/batch
func (s *Server) uploadBatch(c *gin.Context) {
	form, ok := s.multipartForm(c)
	if !ok {
		return
	}

	var structure map[string]string
	if raw := formValue(form, "folderStructure"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &structure); err != nil {
			respondError(c, apperr.New(apperr.KindValidation, "Invalid folder structure JSON"))
			return
		}
	}

	policyName := formValue(form, "conflictResolution")
	if policyName == "" {
		policyName = s.config.Upload.DefaultConflictPolicy
	}
	policy, err := upload.ParsePolicy(policyName)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := s.uploads.UploadBatch(c.Request.Context(), upload.BatchRequest{
		Files:           incomingFiles(form),
		FolderStructure: structure,
		TargetPath:      formValue(form, "targetPath"),
		Policy:          policy,
	})
	if report == nil {
		respondError(c, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveUploads(string(upload.StatusSuccess), report.Summary.SuccessfulUploads)
		s.metrics.ObserveUploads(string(upload.StatusSkipped), report.Summary.SkippedUploads)
		s.metrics.ObserveUploads(string(upload.StatusFailed), report.Summary.FailedUploads)
	}

	respondReport(c, "Batch upload finished", report, err)
}

func (s *Server) multipartForm(c *gin.Context) (*multipart.Form, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, "Expected a multipart form upload", err))
		return nil, false
	}
	return form, true
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// incomingFiles accepts both "files" and "files[]" field names.
func incomingFiles(form *multipart.Form) []upload.Incoming {
	var files []upload.Incoming
	for _, field := range []string{"files", "files[]"} {
		for _, fh := range form.File[field] {
			files = append(files, upload.Incoming{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Open: func() (io.ReadCloser, error) {
					return fh.Open()
				},
			})
		}
	}
	return files
}
