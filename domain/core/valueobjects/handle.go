package valueobjects

// Handle is one of a node's four directional connection anchor points.
// Any handle may pair with any other handle, including the same side.
type Handle string

const (
	HandleTop    Handle = "top"
	HandleRight  Handle = "right"
	HandleBottom Handle = "bottom"
	HandleLeft   Handle = "left"
)

// IsValid reports whether the handle names a cardinal anchor. The empty
// handle is accepted and means the renderer picks a side.
func (h Handle) IsValid() bool {
	switch h {
	case "", HandleTop, HandleRight, HandleBottom, HandleLeft:
		return true
	}
	return false
}

// String returns the string representation.
func (h Handle) String() string {
	return string(h)
}
