package mapping

// LayerStack is the ordered stack of active layer overlays. Layers push on
// activator press and pop on the matching release. Popping is by identity,
// not position: releasing a lower activator while a higher layer is still
// held must leave the higher layer active and in order.
type LayerStack struct {
	active []LayerID
}

func NewLayerStack() *LayerStack {
	return &LayerStack{}
}

// Push activates a layer. Pushing an already-active layer is a no-op.
func (s *LayerStack) Push(id LayerID) {
	for _, a := range s.active {
		if a == id {
			return
		}
	}
	s.active = append(s.active, id)
}

// Pop deactivates the given layer wherever it sits in the stack, preserving
// the order of the remaining layers.
func (s *LayerStack) Pop(id LayerID) {
	for i, a := range s.active {
		if a == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return
		}
	}
}

// Clear drops all active layers.
func (s *LayerStack) Clear() {
	s.active = s.active[:0]
}

// Depth returns the number of active layers.
func (s *LayerStack) Depth() int {
	return len(s.active)
}

// Top returns the top-most active layer, or false when only the base layer
// is active.
func (s *LayerStack) Top() (LayerID, bool) {
	if len(s.active) == 0 {
		return 0, false
	}
	return s.active[len(s.active)-1], true
}

// Resolve returns the effective bindings for a button given the active layer
// stack: top-most layer first, falling through layer by layer to the base.
// Activator buttons never resolve to bindings; their role is authoritative.
// Resolve is pure and side-effect free.
func Resolve(p *Profile, stack *LayerStack, b Button) *Bindings {
	if _, isActivator := p.Activators[b]; isActivator {
		return nil
	}

	for i := len(stack.active) - 1; i >= 0; i-- {
		layer := p.Layers[stack.active[i]]
		if bindings, ok := layer.Buttons[b]; ok && !bindings.Empty() {
			return bindings
		}
	}

	if bindings, ok := p.Base[b]; ok && !bindings.Empty() {
		return bindings
	}
	return nil
}
