package device

// Node is one position in the remote document tree: an entry plus, for
// folders, an exclusively owned subtree.
type Node struct {
	Entry   Entry
	Subtree Tree
}

// Tree is an ordered sequence of nodes rooted at one folder level.
type Tree struct {
	Nodes []Node
}

// FileRef pairs a document entry with its display path relative to the
// crawled root.
type FileRef struct {
	Path  string
	Entry Entry
}

// AllFiles returns (path, entry) pairs for every document in the tree,
// depth first.
func (t Tree) AllFiles(prefix string) []FileRef {
	var result []FileRef
	for _, node := range t.Nodes {
		if node.Entry.IsFolder() {
			result = append(result, node.Subtree.AllFiles(prefix+node.Entry.Name+"/")...)
			continue
		}
		result = append(result, FileRef{Path: prefix + node.Entry.Name, Entry: node.Entry})
	}
	return result
}

// AllFileNames returns the display paths of every document in the tree.
func (t Tree) AllFileNames(prefix string) []string {
	files := t.AllFiles(prefix)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Path)
	}
	return names
}

// AllFileIDs returns the entry id of every document in the tree.
func (t Tree) AllFileIDs() []string {
	var ids []string
	for _, node := range t.Nodes {
		if node.Entry.IsFolder() {
			ids = append(ids, node.Subtree.AllFileIDs()...)
			continue
		}
		ids = append(ids, node.Entry.ID)
	}
	return ids
}

// AllFolderPaths returns the display path of every folder in the tree.
func (t Tree) AllFolderPaths(prefix string) []string {
	var result []string
	for _, node := range t.Nodes {
		if !node.Entry.IsFolder() {
			continue
		}
		path := prefix + node.Entry.Name
		result = append(result, path)
		result = append(result, node.Subtree.AllFolderPaths(path+"/")...)
	}
	return result
}

// FolderIDMap flattens the tree into folder path to entry id pairs.
func (t Tree) FolderIDMap(prefix string) map[string]string {
	mapping := make(map[string]string)
	for _, node := range t.Nodes {
		if !node.Entry.IsFolder() {
			continue
		}
		path := prefix + node.Entry.Name
		mapping[path] = node.Entry.ID
		for sub, id := range node.Subtree.FolderIDMap(path + "/") {
			mapping[sub] = id
		}
	}
	return mapping
}
