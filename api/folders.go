package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/example/image-browser/apperr"
	"github.com/example/image-browser/folders"
	"github.com/example/image-browser/hierarchy"
	"github.com/example/image-browser/listing"
)

const (
	maxDepth        = 10
	maxPreviewCount = 10

	// previewScan bounds the objects read per folder when collecting
	// previews for a single-level listing.
	previewScan = 200

	previewConcurrency = 8
)

type folderQuery struct {
	Path            string `form:"path"`
	Depth           int    `form:"depth,default=1"`
	IncludeFiles    bool   `form:"include_files"`
	IncludePreviews bool   `form:"include_previews"`
	PreviewCount    int    `form:"preview_count,default=3"`
	Limit           int    `form:"limit"`
	Offset          int    `form:"offset"`
	Cursor          string `form:"cursor"`
}

// listFolders handles GET /api/folders
func (s *Server) listFolders(c *gin.Context) {
	var q folderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid query parameters"))
		return
	}
	if q.Depth < 1 || q.Depth > maxDepth {
		respondError(c, apperr.Newf(apperr.KindValidation, "Depth must be between 1 and %d", maxDepth))
		return
	}
	if q.Offset < 0 {
		respondError(c, apperr.New(apperr.KindValidation, "Offset must not be negative"))
		return
	}
	if q.Limit <= 0 || q.Limit > s.config.Limits.PageSize {
		q.Limit = s.config.Limits.PageSize
	}
	if q.PreviewCount > maxPreviewCount {
		q.PreviewCount = maxPreviewCount
	}

	path, err := s.sanitizer.Sanitize(q.Path)
	if err != nil {
		respondError(c, err)
		return
	}

	var (
		view       hierarchy.Result
		pagination gin.H
	)
	if q.Depth == 1 {
		view, pagination, err = s.listLevel(c, path, q)
	} else {
		view, pagination, err = s.listTree(c, path, q)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	files := view.Files
	if !q.IncludeFiles || files == nil {
		files = []hierarchy.FileNode{}
	}
	foldersOut := view.Folders
	if foldersOut == nil {
		foldersOut = []*hierarchy.FolderNode{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"path":       path,
			"folders":    foldersOut,
			"files":      files,
			"pagination": pagination,
		},
	})
}

// listLevel serves depth 1 from a single delimiter listing.
func (s *Server) listLevel(c *gin.Context, path string, q folderQuery) (hierarchy.Result, gin.H, error) {
	children, err := s.lister.ListChildren(c.Request.Context(), path, listing.PageRequest{
		Cursor: q.Cursor,
		Limit:  q.Limit,
	})
	if err != nil {
		return hierarchy.Result{}, nil, err
	}
	view := s.builder.FromChildren(children)
	hierarchy.SortByName(view)

	if q.IncludePreviews && q.PreviewCount > 0 {
		g, ctx := errgroup.WithContext(c.Request.Context())
		g.SetLimit(previewConcurrency)
		for _, folder := range view.Folders {
			g.Go(func() error {
				d, err := s.lister.ListAllDescendants(ctx, folder.Path, previewScan)
				if err != nil {
					return err
				}
				s.builder.AttachPreviews([]*hierarchy.FolderNode{folder}, d.Objects, q.PreviewCount)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return hierarchy.Result{}, nil, err
		}
	}

	pagination := gin.H{"hasMore": children.HasMore}
	if children.HasMore {
		pagination["cursor"] = children.Cursor
	}
	return view, pagination, nil
}

// listTree serves depth > 1 from a bounded descendant listing. Pagination
// applies to the top-level folders.
func (s *Server) listTree(c *gin.Context, path string, q folderQuery) (hierarchy.Result, gin.H, error) {
	d, err := s.lister.ListAllDescendants(c.Request.Context(), path, 0)
	if err != nil {
		return hierarchy.Result{}, nil, err
	}
	view := s.builder.Build(d.Objects, path, q.Depth)
	hierarchy.SortByName(view)

	total := len(view.Folders)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	view.Folders = view.Folders[start:end]

	if q.IncludePreviews && q.PreviewCount > 0 {
		s.builder.AttachPreviews(view.Folders, d.Objects, q.PreviewCount)
	}

	return view, gin.H{
		"total":     total,
		"offset":    q.Offset,
		"limit":     q.Limit,
		"hasMore":   end < total,
		"truncated": d.Truncated,
	}, nil
}

type createFolderRequest struct {
	Name string `json:"name"`
}

type nestedFolderRequest struct {
	Path          string `json:"path"`
	CreateParents bool   `json:"createParents"`
}

type moveFolderRequest struct {
	SourcePath    string `json:"sourcePath"`
	Source        string `json:"source"`
	TargetPath    string `json:"targetPath"`
	Target        string `json:"target"`
	CreateParents bool   `json:"createParents"`
}

type renameFolderRequest struct {
	Name string `json:"name"`
}

// bindJSON decodes the request body, answering 400 on malformed input.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.New(apperr.KindValidation, "Invalid request body"))
		return false
	}
	return true
}

// createFolder handles POST /api/admin/folders
func (s *Server) createFolder(c *gin.Context) {
	var req createFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	path, err := s.folders.Create(c.Request.Context(), req.Name)
	s.observeFolder("create", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Folder created successfully",
		"folder":  path,
	})
}

// createNestedFolder handles POST /api/admin/folders/nested
func (s *Server) createNestedFolder(c *gin.Context) {
	var req nestedFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := s.folders.CreateNested(c.Request.Context(), req.Path, req.CreateParents)
	s.observeFolder("create_nested", err)
	if err != nil {
		respondError(c, err)
		return
	}
	if created == nil {
		created = []string{}
	}
	path, _ := s.sanitizer.Sanitize(req.Path)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Folder created successfully",
		"path":    path,
		"created": created,
	})
}

// moveFolder handles PUT /api/admin/folders/move
func (s *Server) moveFolder(c *gin.Context) {
	var req moveFolderRequest
	if !bindJSON(c, &req) {
		return
	}
	source := req.SourcePath
	if source == "" {
		source = req.Source
	}
	target := req.TargetPath
	if target == "" {
		target = req.Target
	}

	report, err := s.folders.Move(c.Request.Context(), folders.MoveRequest{
		Source:        source,
		Target:        target,
		CreateParents: req.CreateParents,
	})
	s.observeFolder("move", err)
	if report == nil {
		respondError(c, err)
		return
	}
	respondReport(c, "Folder moved successfully", report, err)
}

// renameFolder handles PUT /api/admin/folders/:name
func (s *Server) renameFolder(c *gin.Context) {
	var req renameFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := s.folders.Rename(c.Request.Context(), c.Param("name"), req.Name)
	s.observeFolder("rename", err)
	if report == nil {
		respondError(c, err)
		return
	}
	respondReport(c, "Folder renamed successfully", report, err)
}

// deleteRecursive handles DELETE /api/admin/folders/recursive?path=
func (s *Server) deleteRecursive(c *gin.Context) {
	report, err := s.folders.DeleteRecursive(c.Request.Context(), c.Query("path"))
	s.observeFolder("delete", err)
	if report == nil {
		respondError(c, err)
		return
	}
	respondReport(c, "Folder deleted successfully", report, err)
}

// deleteFolder handles DELETE /api/admin/folders/:name
func (s *Server) deleteFolder(c *gin.Context) {
	report, err := s.folders.DeleteFolder(c.Request.Context(), c.Param("name"))
	s.observeFolder("delete", err)
	if report == nil {
		respondError(c, err)
		return
	}
	respondReport(c, "Folder deleted successfully", report, err)
}

func (s *Server) observeFolder(operation string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveFolderOperation(operation, err)
	}
}
