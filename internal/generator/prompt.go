package generator

import (
	"strings"

	"stencil/internal/domain"
)

// BlackPassInstruction is the edit applied to the white pass. The matte
// engine's correctness depends on pixel-aligned inputs, so the instruction
// forbids any foreground change.
const BlackPassInstruction = "Strictly change ALL negative space from white to solid pure black (#000000). " +
	"This includes the outer background and any internal voids. " +
	"CRITICAL: Do not crop, zoom, or shift. Foreground must match pixel-for-pixel."

// aspectRatios maps asset types to generation aspect ratios.
var aspectRatios = map[domain.AssetType]string{
	domain.AssetTypeContainer:  "16:9",
	domain.AssetTypeIcon:       "1:1",
	domain.AssetTypeTexture:    "1:1",
	domain.AssetTypeEffect:     "1:1",
	domain.AssetTypeImage:      "1:1",
	domain.AssetTypeDecoration: "1:1",
}

// AspectRatioFor returns the generation aspect ratio for an asset type.
func AspectRatioFor(assetType domain.AssetType) string {
	if ratio, ok := aspectRatios[assetType]; ok {
		return ratio
	}
	return "1:1"
}

// geometrySpecs constrain composition per asset type so the matted result
// is usable downstream.
var geometrySpecs = map[domain.AssetType]string{
	domain.AssetTypeContainer: "HOLLOW CENTER REQUIRED: the CENTER of the frame MUST be filled with " +
		"the SAME SOLID COLOR as the background, creating a cutout effect. " +
		"Do NOT add any decorative content in the center.",
	domain.AssetTypeIcon:    "Centered composition with padding around edges. Single focal point.",
	domain.AssetTypeTexture: "Seamless tileable pattern. Edges must tile seamlessly.",
	domain.AssetTypeEffect:  "Visual effect with transparency. Elements should have clear boundaries.",
}

// BuildWhitePassPrompt assembles the first-pass prompt: the caller's
// subject, optional style context, the per-type geometry constraint, and
// the solid white background demand.
func BuildWhitePassPrompt(prompt, styleContext string, assetType domain.AssetType) string {
	var lines []string
	lines = append(lines, strings.TrimSpace(prompt))

	if style := strings.TrimSpace(styleContext); style != "" {
		lines = append(lines, "Visual style: "+style+".")
	}
	if spec, ok := geometrySpecs[assetType]; ok {
		lines = append(lines, spec)
	}

	background := "BACKGROUND: Solid pure white (#FFFFFF). No gradient. No shadows on background. " +
		"Centered composition with padding."
	if assetType == domain.AssetTypeContainer {
		background += " The hollow center must also be pure white #FFFFFF."
	}
	lines = append(lines, background)

	return strings.Join(lines, "\n\n")
}
