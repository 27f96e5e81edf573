package domain

// ManifestVersion identifies the component manifest schema emitted by this
// build of the pipeline.
const ManifestVersion = "0.1"

// Rect is an axis-aligned rectangle in image pixel coordinates, origin at
// the top-left corner.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the rectangle's area in pixels.
func (r Rect) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.Area() == 0 }

// Insets describes per-edge margins in pixels.
type Insets struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// ContentZones describes the non-content margin between the asset's edges
// and its semantic content, with percentage intrinsics for responsive use.
type ContentZones struct {
	InsetTop       int     `json:"inset_top"`
	InsetRight     int     `json:"inset_right"`
	InsetBottom    int     `json:"inset_bottom"`
	InsetLeft      int     `json:"inset_left"`
	InsetTopPct    float64 `json:"inset_top_pct"`
	InsetRightPct  float64 `json:"inset_right_pct"`
	InsetBottomPct float64 `json:"inset_bottom_pct"`
	InsetLeftPct   float64 `json:"inset_left_pct"`
	LayoutHint     string  `json:"layout_hint,omitempty"`
}

// ShapeKind classifies the opaque silhouette.
type ShapeKind string

const (
	ShapeRect        ShapeKind = "rect"
	ShapeRoundedRect ShapeKind = "rounded_rect"
	ShapeCircle      ShapeKind = "circle"
	ShapePolygon     ShapeKind = "polygon"
	ShapeEmpty       ShapeKind = "empty"
)

// ShapeHint tells the consumer how to mask or round the asset. Polygon
// silhouettes are accompanied by a separate mask asset.
type ShapeHint struct {
	Type         ShapeKind `json:"type"`
	CornerRadius int       `json:"corner_radius,omitempty"`
	DiameterPx   int       `json:"diameter_px,omitempty"`
	NeedsMask    bool      `json:"needs_mask,omitempty"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Anchor is a normalized anchor point within the asset.
type Anchor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transparency summarizes the alpha distribution of the matted output.
type Transparency struct {
	TransparentPct     float64 `json:"transparent_pct"`
	SemiTransparentPct float64 `json:"semi_transparent_pct"`
	OpaquePct          float64 `json:"opaque_pct"`
	CenterTransparency float64 `json:"center_transparency"`
}

// Intrinsics carries the geometric metadata downstream renderers use to
// place content without manual measurement.
type Intrinsics struct {
	Size         Size         `json:"size"`
	Anchor       Anchor       `json:"anchor"`
	LayoutBounds Rect         `json:"layout_bounds"`
	ContentZones ContentZones `json:"content_zones"`
	SliceInsets  Insets       `json:"slice_insets"`
	SafeZone     Rect         `json:"safe_zone"`
	ShapeHint    ShapeHint    `json:"shape_hint"`
	MaskAsset    string       `json:"mask_asset,omitempty"`
}

// PlaybackState references the asset file backing one named state.
type PlaybackState struct {
	Clip string `json:"clip"`
	Loop bool   `json:"loop"`
}

// Accessibility carries the semantic role and label of the component.
type Accessibility struct {
	Role  string `json:"role"`
	Label string `json:"label"`
}

// ComponentManifest is the deliverable of a succeeded job. States always
// includes at least "idle"; Assets maps logical asset names to storage
// references resolved to URLs by an external collaborator.
type ComponentManifest struct {
	Version       string                   `json:"version"`
	ID            string                   `json:"id"`
	Type          string                   `json:"type"`
	Intrinsics    Intrinsics               `json:"intrinsics"`
	States        map[string]PlaybackState `json:"states"`
	Assets        map[string]string        `json:"assets"`
	Accessibility Accessibility            `json:"accessibility"`
	Telemetry     *Transparency            `json:"telemetry,omitempty"`
}
