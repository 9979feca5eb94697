package api

import (
	"math"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/listing"
	"github.com/example/image-browser/storage"
)

type imageItem struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Uploaded time.Time `json:"uploaded"`
	URL      string    `json:"url"`
}

// listImages handles GET /api/images?folder=
func (s *Server) listImages(c *gin.Context) {
	folder := c.Query("folder")
	if folder == "" {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"images":  []imageItem{},
		})
		return
	}

	clean, err := s.sanitizer.Sanitize(folder)
	if err != nil {
		respondError(c, err)
		return
	}
	children, err := s.lister.ListChildren(c.Request.Context(), clean, listing.PageRequest{
		Limit: s.config.Limits.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	images := make([]imageItem, 0, len(children.Objects))
	for _, obj := range children.Objects {
		if keys.Classify(obj.Key).Kind != keys.File {
			continue
		}
		images = append(images, imageItem{
			Key:      obj.Key,
			Name:     keys.Name(obj.Key),
			Size:     obj.Size,
			Uploaded: obj.LastModified,
			URL:      s.builder.URLs.URL(obj.Key),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"folder":  clean,
		"images":  images,
	})
}

type bucketStats struct {
	TotalFiles     int            `json:"totalFiles"`
	TotalSize      int64          `json:"totalSize"`
	TotalSizeMB    float64        `json:"totalSizeMB"`
	TotalSizeHuman string         `json:"totalSizeHuman"`
	FolderCount    int            `json:"folderCount"`
	FileTypes      map[string]int `json:"fileTypes"`
	LastUpdated    string         `json:"lastUpdated"`
	Truncated      bool           `json:"truncated"`
}

// stats handles GET /api/admin/stats
func (s *Server) stats(c *gin.Context) {
	d, err := s.lister.ListAllDescendants(c.Request.Context(), "", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	result := computeStats(d.Objects, s.config.Stats.ExcludePrefixes, time.Now())
	result.Truncated = d.Truncated

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   result,
	})
}

// computeStats summarises objects. Placeholders only contribute their
// folder; keys under an excluded prefix are ignored entirely.
func computeStats(objects []storage.ObjectInfo, exclude []string, now time.Time) bucketStats {
	result := bucketStats{
		FileTypes:   make(map[string]int),
		LastUpdated: now.UTC().Format(time.RFC3339),
	}
	folderSet := make(map[string]struct{})

	for _, obj := range objects {
		if excluded(obj.Key, exclude) {
			continue
		}

		segments := strings.Split(obj.Key, "/")
		for i := 1; i < len(segments); i++ {
			folderSet[strings.Join(segments[:i], "/")] = struct{}{}
		}

		if keys.IsPlaceholder(obj.Key) {
			continue
		}

		result.TotalFiles++
		result.TotalSize += obj.Size
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(keys.Name(obj.Key)), "."))
		if ext == "" {
			ext = "unknown"
		}
		result.FileTypes[ext]++
	}

	result.FolderCount = len(folderSet)
	result.TotalSizeMB = math.Round(float64(result.TotalSize)/(1024*1024)*100) / 100
	result.TotalSizeHuman = humanize.IBytes(uint64(result.TotalSize))
	return result
}

func excluded(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && (strings.HasPrefix(key, p) || strings.Contains(key, "/"+p)) {
			return true
		}
	}
	return false
}
