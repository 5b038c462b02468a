package presence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/fsutil"
)

// MetadataFileName is the well-known metadata file discovered inside module
// archives.
const MetadataFileName = "modinfo.json"

// A marker file shipped by one well-known module that predates the metadata
// format. Its presence alone implies the module id.
const (
	MarkerFileName = "weavekit.marker"
	MarkerModuleID = "weavekit"
)

// Scan enumerates every reachable metadata resource under the given roots and
// populates the registry. A single malformed resource is logged and skipped;
// a failure to enumerate resources at all is fatal, since nothing downstream
// can function without the presence view.
func (r *Registry) Scan(ctx context.Context, roots ...string) error {
	logger := ctxlog.FromContext(ctx)

	for _, root := range roots {
		files, err := fsutil.FindFilesByName(root, MetadataFileName)
		if err != nil {
			return fmt.Errorf("failed to enumerate module metadata under %s: %w", root, err)
		}
		logger.Debug("Found module metadata files.", "root", root, "count", len(files))

		for _, path := range files {
			r.scanFile(ctx, path)
		}

		r.detectMarker(ctx, root)
	}

	logger.Info("Module discovery finished.", "modules", len(r.Modules()))
	return nil
}

// scanFile parses one metadata file and records its module ids. The archive
// name is the base name of the directory holding the file; the first module
// id found becomes the archive's primary id.
func (r *Registry) scanFile(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read module metadata, skipping.", "path", path, "error", err)
		return
	}
	if !gjson.ValidBytes(data) {
		logger.Warn("Module metadata is not valid JSON, skipping.", "path", path)
		return
	}

	// The format tolerates two shapes: a bare list of {modid: ...} objects,
	// or an object wrapping the same list under "modList".
	root := gjson.ParseBytes(data)
	list := root
	if root.IsObject() {
		list = root.Get("modList")
	}
	if !list.IsArray() {
		logger.Warn("Module metadata has no module list, skipping.", "path", path)
		return
	}

	archive := filepath.Base(filepath.Dir(path))
	primary := ""
	list.ForEach(func(_, entry gjson.Result) bool {
		modid := entry.Get("modid").String()
		if modid == "" {
			logger.Warn("Module metadata entry without a modid, skipping entry.", "path", path)
			return true
		}
		if primary == "" {
			primary = modid
			r.record(ctx, archive, modid)
		} else {
			r.record(ctx, "", modid)
		}
		return true
	})

	if primary == "" {
		logger.Warn("Module metadata declared no usable module ids.", "path", path)
		return
	}
	logger.Debug("Recorded module metadata.", "path", path, "archive", archive, "primary", primary)
}

// detectMarker performs the one hard-coded detection that does not go through
// metadata files. Not finding the marker is the normal case and stays silent.
func (r *Registry) detectMarker(ctx context.Context, root string) {
	logger := ctxlog.FromContext(ctx)
	matches, err := fsutil.FindFilesByName(root, MarkerFileName)
	if err != nil || len(matches) == 0 {
		return
	}
	archive := filepath.Base(filepath.Dir(matches[0]))
	r.record(ctx, archive, MarkerModuleID)
	logger.Info("Detected marker-only module.", "modid", MarkerModuleID, "marker", matches[0])
}
