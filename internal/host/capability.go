package host

// Optional capabilities a Surface may implement. Each capability is
// discovered with an explicit query function; a missing capability
// disables exactly one signal source and nothing else. Subscriptions
// return a CancelFunc that must be idempotent.

// UpdateNotifier delivers the host's content-and-selection change
// stream. This is the preferred change signal.
type UpdateNotifier interface {
	SubscribeUpdates(fn func(Update)) CancelFunc
}

// KeyNotifier delivers key presses targeted at the surface.
type KeyNotifier interface {
	SubscribeKeys(fn func(Key)) CancelFunc
}

// MouseNotifier delivers mouse presses on the document.
type MouseNotifier interface {
	SubscribeMouse(fn func(Mouse)) CancelFunc
}

// ScrollNotifier delivers scroll events from the surface's scroll
// container.
type ScrollNotifier interface {
	SubscribeScroll(fn func()) CancelFunc
}

// FocusNotifier delivers focus and blur transitions for the surface.
type FocusNotifier interface {
	SubscribeFocus(fn func(focused bool)) CancelFunc
}

// Updates reports whether s exposes an update stream.
// Fallback when absent: navigation keys, mouse, and the poll fallback
// carry change detection, and typing cannot be distinguished from
// navigation (the slower animation profile is used).
func Updates(s Surface) (UpdateNotifier, bool) {
	u, ok := s.(UpdateNotifier)
	return u, ok
}

// Keys reports whether s exposes key observation.
// Fallback when absent: caret movement from navigation keys is picked
// up by the update stream or the poll fallback one cycle later.
func Keys(s Surface) (KeyNotifier, bool) {
	k, ok := s.(KeyNotifier)
	return k, ok
}

// MouseEvents reports whether s exposes mouse observation.
// Fallback when absent: click repositioning is picked up by the update
// stream or the poll fallback.
func MouseEvents(s Surface) (MouseNotifier, bool) {
	m, ok := s.(MouseNotifier)
	return m, ok
}

// ScrollEvents reports whether s exposes scroll observation.
// Fallback when absent: the overlay lags during scroll until the next
// signal; mutation observation usually closes the gap.
func ScrollEvents(s Surface) (ScrollNotifier, bool) {
	sc, ok := s.(ScrollNotifier)
	return sc, ok
}

// FocusEvents reports whether s exposes focus observation.
// Fallback when absent: focus state is recomputed on the throttled
// schedule only, so focus-edge updates can lag by up to the throttle
// window.
func FocusEvents(s Surface) (FocusNotifier, bool) {
	f, ok := s.(FocusNotifier)
	return f, ok
}
