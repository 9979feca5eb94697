// Package hierarchy turns flat key listings into folder and file views.
//
// Nodes are rebuilt from the store on every request and never persisted.
// Folder identity is the full path, so same-named folders on different
// branches stay distinct.
package hierarchy

import (
	"sort"
	"strings"
	"time"

	"github.com/example/image-browser/keys"
	"github.com/example/image-browser/listing"
	"github.com/example/image-browser/storage"
)

// FolderNode is a simulated folder.
type FolderNode struct {
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	FileCount int           `json:"fileCount,omitempty"`
	TotalSize int64         `json:"totalSize,omitempty"`
	Children  []*FolderNode `json:"children,omitempty"`
	Previews  []FileNode    `json:"previews,omitempty"`
}

// FileNode is an image object.
type FileNode struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url"`
}

// Result holds the folders and files found directly at the base path.
// Deeper folders hang off Children.
type Result struct {
	Folders []*FolderNode
	Files   []FileNode
}

// Builder builds views over listed objects.
type Builder struct {
	URLs keys.URLBuilder
}

// Build groups objects below basePath into a tree at most depth levels
// deep. An object counts towards every ancestor folder when it sits no
// more than depth folders below basePath; deeper objects only contribute
// the folders within reach. Placeholders register folders but are never
// counted, and hidden folders are left out entirely.
func (b Builder) Build(objects []storage.ObjectInfo, basePath string, depth int) Result {
	if depth < 1 {
		depth = 1
	}
	prefix := keys.FolderPrefix(basePath)

	var result Result
	nodes := make(map[string]*FolderNode)

	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" {
			continue
		}
		segments := strings.Split(rel, "/")
		class := keys.Classify(obj.Key)

		if len(segments) == 1 {
			if class.Kind == keys.File {
				result.Files = append(result.Files, b.fileNode(obj, class))
			}
			continue
		}

		folderSegments := segments[:len(segments)-1]
		countable := class.Kind == keys.File && len(folderSegments) <= depth

		var parent *FolderNode
		for level, name := range folderSegments {
			if level >= depth || name == "" || keys.IsHiddenName(name) {
				break
			}
			relPath := strings.Join(folderSegments[:level+1], "/")
			node, ok := nodes[relPath]
			if !ok {
				node = &FolderNode{
					Name: name,
					Path: prefix + relPath,
				}
				nodes[relPath] = node
				if parent == nil {
					result.Folders = append(result.Folders, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			if countable {
				node.FileCount++
				node.TotalSize += obj.Size
			}
			parent = node
		}
	}

	return result
}

// FromChildren converts a delimiter listing into the same shapes Build
// produces for depth 1. A delimiter listing carries no counts, so the
// nodes leave FileCount and TotalSize unset and they are omitted from JSON.
func (b Builder) FromChildren(children *listing.Children) Result {
	var result Result
	for _, folder := range children.Folders {
		name := folder[strings.LastIndex(folder, "/")+1:]
		if name == "" || keys.IsHiddenName(name) {
			continue
		}
		result.Folders = append(result.Folders, &FolderNode{
			Name: name,
			Path: folder,
		})
	}
	for _, obj := range children.Objects {
		if class := keys.Classify(obj.Key); class.Kind == keys.File {
			result.Files = append(result.Files, b.fileNode(obj, class))
		}
	}
	return result
}

// Files returns a FileNode for every image among objects.
func (b Builder) Files(objects []storage.ObjectInfo) []FileNode {
	var files []FileNode
	for _, obj := range objects {
		if class := keys.Classify(obj.Key); class.Kind == keys.File {
			files = append(files, b.fileNode(obj, class))
		}
	}
	return files
}

// AttachPreviews gives each folder up to n images found anywhere below it,
// in listing order.
func (b Builder) AttachPreviews(folders []*FolderNode, objects []storage.ObjectInfo, n int) {
	if n <= 0 {
		return
	}
	for _, folder := range folders {
		prefix := keys.FolderPrefix(folder.Path)
		folder.Previews = nil
		for _, obj := range objects {
			if len(folder.Previews) == n {
				break
			}
			if !strings.HasPrefix(obj.Key, prefix) {
				continue
			}
			if class := keys.Classify(obj.Key); class.Kind == keys.File {
				folder.Previews = append(folder.Previews, b.fileNode(obj, class))
			}
		}
	}
}

// SortByName orders folders (recursively) and files by name.
func SortByName(r Result) {
	sortFolders(r.Folders)
	sort.Slice(r.Files, func(i, j int) bool {
		return r.Files[i].Name < r.Files[j].Name
	})
}

func sortFolders(folders []*FolderNode) {
	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})
	for _, f := range folders {
		sortFolders(f.Children)
	}
}

func (b Builder) fileNode(obj storage.ObjectInfo, class keys.Class) FileNode {
	return FileNode{
		Name:         keys.Name(obj.Key),
		Path:         obj.Key,
		Size:         obj.Size,
		ContentType:  class.ContentType,
		LastModified: obj.LastModified,
		URL:          b.URLs.URL(obj.Key),
	}
}
