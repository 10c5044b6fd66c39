// Package annotate merges a parsed diff with the review conversation:
// it folds raw comment lists into threads, files the threads under typed
// anchors, and attaches each thread to the exact diff line it was written
// against. Threads whose anchor no longer resolves are kept and reported
// instead of dropped.
package annotate

import (
	"sort"

	"github.com/prdump/prdump/internal/domain"
)

// Anchor is the composite key a thread is filed under: the file path, the
// diff side the root comment targets, and the line number on that side.
type Anchor struct {
	Path string
	Side domain.Side
	Line int
}

// Index holds the review conversation reorganized for line-addressable
// lookup. Thread order is deterministic everywhere: threads sort by root
// creation time (ties by root ID), replies by creation time (ties by ID).
type Index struct {
	anchored map[Anchor][]domain.Thread
	byPath   map[string][]domain.Thread
	general  []domain.GeneralComment
	reviews  []domain.Review
	inline   int
}

// BuildIndex normalizes and threads the raw comment lists.
//
// Missing optional fields never fail the build: an absent author becomes
// domain.UnknownAuthor, an absent side defaults to the new side, and an
// absent body stays empty. Replies are resolved transitively to their chain
// root; a reply whose parent is not in the dataset is promoted to a root of
// its own thread.
func BuildIndex(comments []domain.Comment, general []domain.GeneralComment, reviews []domain.Review) *Index {
	normalized := make([]domain.Comment, len(comments))
	for i, c := range comments {
		normalized[i] = normalizeComment(c)
	}

	threads := buildThreads(normalized)

	idx := &Index{
		anchored: make(map[Anchor][]domain.Thread),
		byPath:   make(map[string][]domain.Thread),
		general:  normalizeGeneral(general),
		reviews:  normalizeReviews(reviews),
	}
	for _, t := range threads {
		path := t.Root.Path
		idx.byPath[path] = append(idx.byPath[path], t)
		if t.Root.Anchored() {
			key := Anchor{Path: path, Side: t.Root.Side, Line: *t.Root.Line}
			idx.anchored[key] = append(idx.anchored[key], t)
		}
		idx.inline += t.Size()
	}
	return idx
}

// ThreadsAt returns the threads anchored at exactly (path, side, line), in
// thread order. The returned slice is shared; callers must not mutate it.
func (idx *Index) ThreadsAt(path string, side domain.Side, line int) []domain.Thread {
	return idx.anchored[Anchor{Path: path, Side: side, Line: line}]
}

// FileThreads returns every thread filed under path, anchored or not, in
// thread order.
func (idx *Index) FileThreads(path string) []domain.Thread {
	return idx.byPath[path]
}

// Paths returns the sorted set of file paths that carry at least one thread.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.byPath))
	for p := range idx.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// GeneralComments returns the issue-style discussion in creation order.
func (idx *Index) GeneralComments() []domain.GeneralComment {
	return idx.general
}

// Reviews returns the submitted reviews in submission order.
func (idx *Index) Reviews() []domain.Review {
	return idx.reviews
}

// InlineCount is the total number of inline comments in the index.
func (idx *Index) InlineCount() int {
	return idx.inline
}

func normalizeComment(c domain.Comment) domain.Comment {
	if c.Author == "" {
		c.Author = domain.UnknownAuthor
	}
	if c.Side != domain.SideOld && c.Side != domain.SideNew {
		c.Side = domain.SideNew
	}
	return c
}

func normalizeGeneral(general []domain.GeneralComment) []domain.GeneralComment {
	out := make([]domain.GeneralComment, len(general))
	for i, g := range general {
		if g.Author == "" {
			g.Author = domain.UnknownAuthor
		}
		out[i] = g
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func normalizeReviews(reviews []domain.Review) []domain.Review {
	out := make([]domain.Review, len(reviews))
	for i, r := range reviews {
		if r.Author == "" {
			r.Author = domain.UnknownAuthor
		}
		out[i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].Author < out[j].Author
	})
	return out
}

// buildThreads folds a flat comment list into sorted threads. Each comment
// is walked to its chain root; a missing parent or a reply cycle cuts the
// chain at the comment that hit it.
func buildThreads(comments []domain.Comment) []domain.Thread {
	byID := make(map[int64]domain.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	rootOf := make(map[int64]int64, len(comments))
	var resolve func(id int64, seen map[int64]bool) int64
	resolve = func(id int64, seen map[int64]bool) int64 {
		if r, ok := rootOf[id]; ok {
			return r
		}
		seen[id] = true
		c := byID[id]
		if c.InReplyTo == nil {
			rootOf[id] = id
			return id
		}
		parent := *c.InReplyTo
		if _, known := byID[parent]; !known || seen[parent] {
			rootOf[id] = id
			return id
		}
		root := resolve(parent, seen)
		rootOf[id] = root
		return root
	}
	for _, c := range comments {
		resolve(c.ID, make(map[int64]bool))
	}

	replies := make(map[int64][]domain.Comment)
	for _, c := range comments {
		if root := rootOf[c.ID]; root != c.ID {
			replies[root] = append(replies[root], c)
		}
	}

	threads := make([]domain.Thread, 0, len(comments))
	for _, c := range comments {
		if rootOf[c.ID] != c.ID {
			continue
		}
		chain := replies[c.ID]
		sort.SliceStable(chain, func(i, j int) bool {
			if !chain[i].CreatedAt.Equal(chain[j].CreatedAt) {
				return chain[i].CreatedAt.Before(chain[j].CreatedAt)
			}
			return chain[i].ID < chain[j].ID
		})
		threads = append(threads, domain.Thread{Root: c, Replies: chain})
	}
	sort.SliceStable(threads, lessThreads(threads))
	return threads
}

// lessThreads is the one thread ordering used across the whole pipeline.
func lessThreads(threads []domain.Thread) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := threads[i].Root, threads[j].Root
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
}
