package preview

const (
	MinWidth   = 320
	MaxWidth   = 420
	MaxHeight  = 620
	ShrinkStep = 10
)

// Size returns the overlay dimensions for a source of w x h pixels. The
// width is a quarter of the source clamped to [MinWidth, MaxWidth], then
// stepped down until the height fits MaxHeight. Sources taller than
// MinWidth:MaxHeight keep shrinking below MinWidth, the height bound wins.
func Size(w, h int) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	aspect := float64(w) / float64(h)

	width := clamp(float64(w)/4, MinWidth, MaxWidth)
	height := width / aspect

	for height > MaxHeight {
		next := width - ShrinkStep
		if next < MinWidth && width > MinWidth {
			next = MinWidth
		}
		if next <= 0 {
			width, height = MaxHeight*aspect, MaxHeight
			break
		}
		width, height = next, next/aspect
	}
	return width, height
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
