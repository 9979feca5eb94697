package api

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/pathsafe"
	"github.com/example/image-browser/storage"
)

// serveFile streams a stored image
func (s *Server) serveFile(c *gin.Context) {
	key, err := storedKey(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if keys.Classify(key).Kind != keys.File {
		respondError(c, apperr.New(apperr.KindNotFound, "File not found"))
		return
	}

	obj, err := s.storage.Get(c.Request.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) {
			respondError(c, apperr.New(apperr.KindNotFound, "File not found"))
			return
		}
		respondError(c, apperr.Wrap(apperr.KindStore, "Failed to read file", err))
		return
	}
	defer obj.Body.Close()

	contentType := obj.Info.ContentType
	if contentType == "" || contentType == keys.DefaultContentType {
		contentType = keys.ContentTypeFor(key)
	}
	c.Header("Content-Type", contentType)
	if obj.Info.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	}
	if obj.Info.ETag != "" {
		c.Header("ETag", obj.Info.ETag)
	}
	if !obj.Info.LastModified.IsZero() {
		c.Header("Last-Modified", obj.Info.LastModified.UTC().Format(http.TimeFormat))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, obj.Body); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to stream file")
	}
}

// storedKey turns the wildcard route parameter back into an object key.
// Keys were validated on upload, which allows names such as "a:b.png" or
// "my..photo.png", so only what cannot be a stored key is refused here.
func storedKey(raw string) (string, error) {
	key := strings.TrimPrefix(raw, "/")
	if key == "" {
		return "", apperr.New(apperr.KindNotFound, "File not found")
	}
	if strings.IndexFunc(key, unicode.IsControl) >= 0 {
		return "", apperr.New(apperr.KindValidation, "Invalid characters in path")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", apperr.New(apperr.KindValidation, "Invalid file path")
		}
	}
	return key, nil
}

// downloadFolder streams every image below a folder as a ZIP archive.
// Entries keep their path relative to the folder.
func (s *Server) downloadFolder(c *gin.Context) {
	folder, err := s.sanitizer.Sanitize(c.Query("path"))
	if err != nil {
		respondError(c, err)
		return
	}

	d, err := s.lister.ListAllDescendants(c.Request.Context(), folder, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	var images []storage.ObjectInfo
	for _, obj := range d.Objects {
		if keys.Classify(obj.Key).Kind == keys.File {
			images = append(images, obj)
		}
	}
	if len(images) == 0 {
		respondError(c, apperr.New(apperr.KindNotFound, "Folder not found"))
		return
	}

	name := pathsafe.Base(folder)
	if name == "" {
		name = s.config.Storage.Bucket
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	c.Status(http.StatusOK)

	prefix := keys.FolderPrefix(folder)
	zipWriter := zip.NewWriter(c.Writer)
	defer zipWriter.Close()

	for _, info := range images {
		// Errors on one entry skip it; the archive is already streaming
		obj, err := s.storage.Get(c.Request.Context(), info.Key)
		if err != nil {
			logrus.WithError(err).WithField("key", info.Key).Warn("Skipping file in archive")
			continue
		}

		entry, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:     strings.TrimPrefix(info.Key, prefix),
			Method:   zip.Store,
			Modified: info.LastModified,
		})
		if err == nil {
			_, err = io.Copy(entry, obj.Body)
		}
		obj.Body.Close()
		if err != nil {
			logrus.WithError(err).WithField("key", info.Key).Warn("Failed to add file to archive")
			return
		}
	}
}
