package device

import (
	"context"
	"log/slog"

	"golang.org/x/text/cases"

	"remsync/internal/logging"
)

// DefaultMaxDepth bounds tree recursion. The remote listing is untrusted
// input; a malformed or cyclic parent chain must not recurse forever.
const DefaultMaxDepth = 20

// findFolderDepth is the shallow bound used for folder lookup.
const findFolderDepth = 3

// Crawler fetches and assembles the device's hierarchical document metadata.
type Crawler struct {
	client *Client
	logger *slog.Logger
}

// NewCrawler constructs a crawler over the given client.
func NewCrawler(client *Client, logger *slog.Logger) *Crawler {
	return &Crawler{
		client: client,
		logger: logging.NewComponentLogger(logger, "crawler"),
	}
}

// CrawlOptions tunes one BuildTree run.
type CrawlOptions struct {
	// MaxDepth bounds recursion; zero means DefaultMaxDepth.
	MaxDepth int
	// OnProgress, when set, is invoked after every listing fetch with the
	// cumulative entry count seen so far.
	OnProgress func(count int)
}

// BuildTree recursively fetches children for every folder entry starting at
// folderID (empty string for the root). Hitting the depth bound logs a
// warning and returns an empty subtree instead of failing.
func (cr *Crawler) BuildTree(ctx context.Context, folderID string, opts CrawlOptions) (Tree, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	counter := 0
	return cr.crawl(ctx, folderID, 0, maxDepth, opts.OnProgress, &counter)
}

func (cr *Crawler) crawl(ctx context.Context, folderID string, depth, maxDepth int, onProgress func(int), counter *int) (Tree, error) {
	if depth >= maxDepth {
		cr.logger.Warn("max folder depth reached, stopping recursion",
			logging.Int("max_depth", maxDepth),
			logging.String("folder_id", folderID))
		return Tree{}, nil
	}

	entries, err := cr.client.FetchListing(ctx, folderID)
	if err != nil {
		return Tree{}, err
	}

	*counter += len(entries)
	if onProgress != nil {
		onProgress(*counter)
	}

	tree := Tree{Nodes: make([]Node, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if _, dup := seen[entry.ID]; dup && entry.ID != "" {
			continue
		}
		seen[entry.ID] = struct{}{}

		node := Node{Entry: entry}
		if entry.IsFolder() {
			subtree, err := cr.crawl(ctx, entry.ID, depth+1, maxDepth, onProgress, counter)
			if err != nil {
				return Tree{}, err
			}
			node.Subtree = subtree
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree, nil
}

// FindFolderID resolves a folder display path to its entry id using a shallow
// crawl. It tries an exact match first, then a case-insensitive one, and
// returns the empty-string root sentinel on any miss or error. It never
// fails: an unresolvable folder means "upload to root".
func (cr *Crawler) FindFolderID(ctx context.Context, name string) string {
	if name == "" {
		return ""
	}

	tree, err := cr.BuildTree(ctx, "", CrawlOptions{MaxDepth: findFolderDepth})
	if err != nil {
		cr.logger.Warn("folder lookup failed",
			logging.String("folder", name),
			logging.Error(err))
		return ""
	}

	folderMap := tree.FolderIDMap("")
	if id, ok := folderMap[name]; ok {
		return id
	}

	fold := cases.Fold()
	wanted := fold.String(name)
	for path, id := range folderMap {
		if fold.String(path) == wanted {
			return id
		}
	}

	cr.logger.Warn("folder not found on device, uploading to root",
		logging.String("folder", name))
	return ""
}
