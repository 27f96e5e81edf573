package domain

import (
	"fmt"
	"sort"
	"strings"
)

// MaxPromptLength bounds the creation prompt; longer prompts are rejected
// synchronously, before any job record exists.
const MaxPromptLength = 2000

// DefaultLayoutIntent is applied when the caller does not express one.
const DefaultLayoutIntent = "auto"

// CreateJobInput carries the immutable creation-time inputs of a job.
type CreateJobInput struct {
	Prompt         string    `json:"prompt"`
	StyleContext   string    `json:"style_context"`
	AssetType      AssetType `json:"asset_type"`
	LayoutIntent   string    `json:"layout_intent"`
	RenderSizeHint *int      `json:"render_size_hint"`
	Name           string    `json:"name"`
}

// Validate checks the input synchronously. Failures never enter the state
// machine.
func (in *CreateJobInput) Validate() error {
	if strings.TrimSpace(in.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidPrompt)
	}
	if len(in.Prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidPrompt, MaxPromptLength)
	}
	if in.AssetType != "" && !AllowedAssetTypes[in.AssetType] {
		return fmt.Errorf("%w: asset_type must be one of: %s", ErrInvalidInput, allowedAssetTypeList())
	}
	if in.RenderSizeHint != nil && *in.RenderSizeHint <= 0 {
		return fmt.Errorf("%w: render_size_hint must be positive", ErrInvalidInput)
	}
	return nil
}

// Normalize fills defaults after a successful Validate. The job id may be
// needed for the default name, so it is passed in.
func (in *CreateJobInput) Normalize(jobID string) {
	if in.AssetType == "" {
		in.AssetType = InferAssetType(in.Prompt)
	}
	if strings.TrimSpace(in.LayoutIntent) == "" {
		in.LayoutIntent = DefaultLayoutIntent
	}
	if strings.TrimSpace(in.Name) == "" {
		short := jobID
		if len(short) > 8 {
			short = short[:8]
		}
		in.Name = "asset_" + short
	}
}

func allowedAssetTypeList() string {
	names := make([]string, 0, len(AllowedAssetTypes))
	for t := range AllowedAssetTypes {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// assetTypeKeywords maps prompt vocabulary to asset categories for
// inference when the caller omits an explicit type.
var assetTypeKeywords = []struct {
	keyword string
	kind    AssetType
}{
	{"frame", AssetTypeContainer},
	{"border", AssetTypeContainer},
	{"container", AssetTypeContainer},
	{"panel", AssetTypeContainer},
	{"card", AssetTypeContainer},
	{"icon", AssetTypeIcon},
	{"button", AssetTypeIcon},
	{"badge", AssetTypeIcon},
	{"texture", AssetTypeTexture},
	{"pattern", AssetTypeTexture},
	{"tile", AssetTypeTexture},
	{"glow", AssetTypeEffect},
	{"sparkle", AssetTypeEffect},
	{"particle", AssetTypeEffect},
	{"effect", AssetTypeEffect},
	{"vine", AssetTypeDecoration},
	{"ornament", AssetTypeDecoration},
	{"divider", AssetTypeDecoration},
	{"decoration", AssetTypeDecoration},
}

// InferAssetType guesses the asset category from prompt vocabulary,
// defaulting to a plain image.
func InferAssetType(prompt string) AssetType {
	lower := strings.ToLower(prompt)
	for _, kw := range assetTypeKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.kind
		}
	}
	return AssetTypeImage
}
