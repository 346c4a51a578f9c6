package index

import (
	"log/slog"

	"github.com/starford/tagtracker/internal/parser"
	"github.com/starford/tagtracker/internal/storage"
)

// Build walks the search root and indexes every markdown document:
//   - directories that cannot be listed are logged and skipped
//   - unreadable or non-text files are logged and skipped
//   - every remaining tag occurrence is recorded against the document
func Build(store storage.Provider, logger *slog.Logger) (*Index, error) {
	docs, err := store.List(func(path string, err error) {
		logger.Warn("index: skipped", slog.String("path", path), slog.String("error", err.Error()))
	})
	if err != nil {
		return nil, err
	}

	idx := New()
	for _, d := range docs {
		data, err := store.Read(d.Rel)
		if err != nil {
			logger.Warn("index: read failed", slog.String("path", d.Rel), slog.String("error", err.Error()))
			continue
		}
		if !parser.IsText(data) {
			logger.Warn("index: not a text file", slog.String("path", d.Rel))
			continue
		}

		ref := d.Ref()
		tags := parser.Tags(string(data))
		for _, tag := range tags {
			idx.Add(tag, ref)
		}
		logger.Debug("index: indexed", slog.String("path", d.Rel), slog.Int("tags", len(tags)))
	}

	logger.Info("index: built", slog.Int("documents", len(docs)), slog.Int("tags", idx.Len()))
	return idx, nil
}
