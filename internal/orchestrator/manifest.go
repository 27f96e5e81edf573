package orchestrator

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stencil/internal/domain"
	"stencil/internal/layout"
	"stencil/internal/trace"
)

var labelCaser = cases.Title(language.English)

// publish writes the final asset set and assembles the component manifest.
// The primary asset always exists; the mask is emitted only for polygon
// silhouettes and the debug overlay is always emitted for inspection.
func (o *Orchestrator) publish(ctx context.Context, job *domain.Job, img *image.NRGBA, meta layout.Metadata, tracer *trace.Tracer) (*domain.ComponentManifest, *domain.Failure) {
	assets := map[string]string{}

	primaryKey := outputKey(job, ".png")
	if failure := o.writeOutput(ctx, primaryKey, img); failure != nil {
		return nil, failure
	}
	assets[job.Name+".png"] = primaryKey

	maskAsset := ""
	if meta.ShapeHint.NeedsMask {
		maskKey := outputKey(job, "_mask.png")
		if failure := o.writeOutput(ctx, maskKey, layout.Mask(img)); failure != nil {
			return nil, failure
		}
		assets[job.Name+"_mask.png"] = maskKey
		maskAsset = job.Name + "_mask.png"
	}

	debugKey := outputKey(job, "_debug.png")
	if failure := o.writeOutput(ctx, debugKey, layout.DebugOverlay(img, meta.LayoutBounds, meta.SafeZone)); failure != nil {
		return nil, failure
	}
	assets[job.Name+"_debug.png"] = debugKey

	for role, ref := range assets {
		if err := o.mirror.SaveAsset(ctx, job.ID, role, ref); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Str("role", role).
				Msg("orchestrator: asset mirror failed")
		}
	}

	telemetry := meta.Transparency
	bounds := img.Bounds()
	manifest := &domain.ComponentManifest{
		Version: domain.ManifestVersion,
		ID:      job.Name,
		Type:    string(job.AssetType),
		Intrinsics: domain.Intrinsics{
			Size:         domain.Size{Width: bounds.Dx(), Height: bounds.Dy()},
			Anchor:       domain.Anchor{X: 0.5, Y: 0.5},
			LayoutBounds: meta.LayoutBounds,
			ContentZones: meta.ContentZones,
			SliceInsets:  meta.SliceInsets,
			SafeZone:     meta.SafeZone,
			ShapeHint:    meta.ShapeHint,
			MaskAsset:    maskAsset,
		},
		States: map[string]domain.PlaybackState{
			"idle": {Clip: job.Name + ".png", Loop: false},
		},
		Assets: assets,
		Accessibility: domain.Accessibility{
			Role:  accessibilityRole(job.AssetType),
			Label: accessibilityLabel(job.Name),
		},
		Telemetry: &telemetry,
	}

	tracer.Record(trace.EventStage, map[string]any{
		"stage":              "publish",
		"assets":             len(assets),
		"safe_zone_strategy": meta.SafeZoneStrategy,
		"shape":              meta.ShapeHint.Type,
	})
	return manifest, nil
}

// writeOutput encodes a PNG and stores it, mapping storage errors to the
// storage failure code.
func (o *Orchestrator) writeOutput(ctx context.Context, key string, img image.Image) *domain.Failure {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.StructuralFailure(domain.ErrCodeStorageFailed, "encode output image", err)
	}
	if _, err := o.artifacts.Write(ctx, key, buf.Bytes()); err != nil {
		return domain.StructuralFailure(domain.ErrCodeStorageFailed, "persist output artifact", err)
	}
	return nil
}

// accessibilityRole maps an asset type to its consumer-facing semantic
// role.
func accessibilityRole(t domain.AssetType) string {
	switch t {
	case domain.AssetTypeContainer:
		return "group"
	case domain.AssetTypeIcon:
		return "img"
	default:
		return "presentation"
	}
}

// accessibilityLabel turns a snake_case asset name into a readable label.
func accessibilityLabel(name string) string {
	return labelCaser.String(strings.ReplaceAll(name, "_", " "))
}
