package events

// Filter decides which event kinds a capture session keeps.
// The zero value permits all events.
type Filter struct {
	deny map[Kind]struct{}
}

// NewFilter constructs a filter from the per-category capture switches.
func NewFilter(moves, clicks, scroll, keyboard bool) Filter {
	filter := Filter{deny: make(map[Kind]struct{})}
	if !moves {
		filter.deny[KindMove] = struct{}{}
	}
	if !clicks {
		filter.deny[KindClick] = struct{}{}
	}
	if !scroll {
		filter.deny[KindScroll] = struct{}{}
	}
	if !keyboard {
		filter.deny[KindKeyPress] = struct{}{}
		filter.deny[KindKeyRelease] = struct{}{}
	}
	return filter
}

// Allows reports whether events of kind k pass the filter.
func (f Filter) Allows(k Kind) bool {
	if len(f.deny) == 0 {
		return true
	}
	_, denied := f.deny[k]
	return !denied
}

// AllowsDevice reports whether any kind produced by class passes the filter.
func (f Filter) AllowsDevice(class DeviceClass) bool {
	for _, k := range Kinds {
		if k.Device() == class && f.Allows(k) {
			return true
		}
	}
	return false
}
