package psd

import "strings"

// splitPath turns a '/'-separated layer path into its named segments,
// ignoring leading/trailing slashes.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// PathLookup resolves a '/'-separated path against a layer tree,
// descending into groups by name at each segment.
func PathLookup[T Sample](layers []*Layer[T], path string) (*Layer[T], error) {
	return pathLookupSegments(layers, splitPath(path), path)
}

func pathLookupSegments[T Sample](layers []*Layer[T], segments []string, full string) (*Layer[T], error) {
	if len(segments) == 0 {
		return nil, PathNotFoundError(full)
	}
	name := segments[0]
	for _, l := range layers {
		if l.Name != name {
			continue
		}
		if len(segments) == 1 {
			return l, nil
		}
		if l.Kind != LayerKindGroup {
			return nil, PathNotFoundError(full)
		}
		return pathLookupSegments(l.Children, segments[1:], full)
	}
	return nil, PathNotFoundError(full)
}

// containsLayer reports whether target already appears anywhere in the
// subtree rooted at layers, by pointer identity.
func containsLayer[T Sample](layers []*Layer[T], target *Layer[T]) bool {
	for _, l := range layers {
		if l == target {
			return true
		}
		if l.Kind == LayerKindGroup && containsLayer(l.Children, target) {
			return true
		}
	}
	return false
}

// AddLayer inserts layer as a child of the group named by parentPath
// ("" for the document root). It rejects layer objects already present
// anywhere in the tree: a layer belongs to exactly one parent.
func AddLayer[T Sample](doc *LayeredFile[T], parentPath string, layer *Layer[T]) error {
	if containsLayer(doc.Layers, layer) {
		return DuplicateLayerError(layer.Name)
	}
	if parentPath == "" {
		doc.Layers = append(doc.Layers, layer)
		return nil
	}
	parent, err := PathLookup(doc.Layers, parentPath)
	if err != nil {
		return err
	}
	if parent.Kind != LayerKindGroup {
		return MalformedTreeError("add target is not a group: " + parentPath)
	}
	parent.Children = append(parent.Children, layer)
	return nil
}

// removeByPath removes the first layer matching segments from layers
// (recursing into groups), returning the updated slice and whether a
// removal occurred.
func removeByPath[T Sample](layers []*Layer[T], segments []string) ([]*Layer[T], bool) {
	if len(segments) == 0 {
		return layers, false
	}
	name := segments[0]
	for i, l := range layers {
		if l.Name != name {
			continue
		}
		if len(segments) == 1 {
			return append(layers[:i:i], layers[i+1:]...), true
		}
		if l.Kind != LayerKindGroup {
			return layers, false
		}
		newChildren, ok := removeByPath(l.Children, segments[1:])
		if ok {
			l.Children = newChildren
		}
		return layers, ok
	}
	return layers, false
}

// RemoveLayer deletes the layer at path from the tree.
func RemoveLayer[T Sample](doc *LayeredFile[T], path string) error {
	newLayers, ok := removeByPath(doc.Layers, splitPath(path))
	if !ok {
		return PathNotFoundError(path)
	}
	doc.Layers = newLayers
	return nil
}

// MoveLayer relocates the layer at srcPath to become a child of the
// group at destParentPath ("" for the document root). Moving a group
// into itself or into one of its own descendants is rejected before
// anything is detached.
func MoveLayer[T Sample](doc *LayeredFile[T], srcPath, destParentPath string) error {
	layer, err := PathLookup(doc.Layers, srcPath)
	if err != nil {
		return err
	}
	if destParentPath != "" {
		dest, err := PathLookup(doc.Layers, destParentPath)
		if err != nil {
			return err
		}
		if dest == layer || (layer.Kind == LayerKindGroup && containsLayer(layer.Children, dest)) {
			return MalformedTreeError("move would create a cycle: " + destParentPath + " is " + srcPath + " or a descendant of it")
		}
	}
	if err := RemoveLayer(doc, srcPath); err != nil {
		return err
	}
	return AddLayer(doc, destParentPath, layer)
}
