package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/loomgate/internal/ctxlog"
	"github.com/vk/loomgate/internal/descriptor"
	"github.com/vk/loomgate/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the manifest file extension discovered under module archives.
const Extension = ".hcl"

// fileSchema is the HCL shape of a descriptor manifest file.
type fileSchema struct {
	Descriptors []*blockSchema `hcl:"descriptor,block"`
}

// blockSchema is a single descriptor block.
type blockSchema struct {
	ID          string    `hcl:"id,label"`
	Namespace   string    `hcl:"namespace,optional"`
	Targets     []string  `hcl:"targets,optional"`
	Decorations cty.Value `hcl:"decorations,optional"`
}

// LoadDir finds, parses, and decodes every descriptor manifest under dir.
// A single unparseable file is logged and skipped; the per-file failures are
// summarized in one aggregate warning. Only a failed directory walk is
// returned as an error.
func LoadDir(ctx context.Context, dir string) ([]*descriptor.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(dir, Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate descriptor manifests under %s: %w", dir, err)
	}
	if len(files) == 0 {
		logger.Warn("No descriptor manifests found.", "path", dir)
		return nil, nil
	}

	var descriptors []*descriptor.Descriptor
	var fileErrs *multierror.Error

	for _, path := range files {
		ds, err := decodeFile(ctx, path)
		if err != nil {
			logger.Warn("Failed to decode descriptor manifest, skipping.", "path", path, "error", err)
			fileErrs = multierror.Append(fileErrs, err)
			continue
		}
		descriptors = append(descriptors, ds...)
	}

	if fileErrs.ErrorOrNil() != nil {
		logger.Warn("Some descriptor manifests were skipped.", "failed", len(fileErrs.Errors), "summary", fileErrs.Error())
	}
	logger.Info("Descriptor manifests loaded.", "files", len(files), "descriptors", len(descriptors))
	return descriptors, nil
}

// decodeFile parses one manifest file into descriptors.
func decodeFile(ctx context.Context, path string) ([]*descriptor.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %s", path, diags.Error())
	}

	var schema fileSchema
	diags = gohcl.DecodeBody(file.Body, nil, &schema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %s", path, diags.Error())
	}

	descriptors := make([]*descriptor.Descriptor, 0, len(schema.Descriptors))
	for _, block := range schema.Descriptors {
		d := descriptor.New(block.ID)
		d.Namespace = block.Namespace
		d.Source = path
		for _, target := range block.Targets {
			d.Targets.Add(target)
		}
		applyDecorations(ctx, d, block.Decorations)
		descriptors = append(descriptors, d)
		logger.Debug("Decoded descriptor block.", "id", block.ID, "path", path, "targets", len(block.Targets))
	}
	return descriptors, nil
}

// applyDecorations copies a manifest's decorations object onto the
// descriptor. Non-string values are skipped with a warning rather than
// failing the whole manifest.
func applyDecorations(ctx context.Context, d *descriptor.Descriptor, v cty.Value) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return
	}
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return
	}
	logger := ctxlog.FromContext(ctx)
	for key, val := range v.AsValueMap() {
		if val.Type() != cty.String || val.IsNull() {
			logger.Warn("Descriptor decoration is not a string, skipping.", "id", d.ID, "key", key)
			continue
		}
		d.DecorateOnce(key, val.AsString())
	}
}
