package mapping

import (
	"testing"

	"github.com/pleimann/gopad/internal/config"
)

func navProfile(t *testing.T) *Profile {
	t.Helper()
	p, _ := compileOne(t, config.Profile{
		Name: "default",
		Buttons: []config.ButtonBinding{
			{Button: "a", Press: act("base-a")},
			{Button: "b", Press: act("base-b")},
		},
		Layers: []config.LayerEntry{
			{
				Name:      "nav",
				Activator: "lb",
				Buttons:   []config.ButtonBinding{{Button: "a", Press: act("nav-a")}},
			},
			{
				Name:      "media",
				Activator: "rb",
				Buttons: []config.ButtonBinding{
					{Button: "a", Press: act("media-a")},
					{Button: "b", Press: act("media-b")},
				},
			},
		},
	})
	return p
}

func pressKey(b *Bindings) string {
	if b == nil || b.Press == nil {
		return ""
	}
	return b.Press.Keys[0]
}

func TestResolveBaseLayer(t *testing.T) {
	p := navProfile(t)
	stack := NewLayerStack()

	if got := pressKey(Resolve(p, stack, ButtonA)); got != "base-a" {
		t.Errorf("base a = %q", got)
	}
	if got := Resolve(p, stack, ButtonX); got != nil {
		t.Errorf("unbound button resolved to %+v", got)
	}
}

func TestResolveTopLayerWins(t *testing.T) {
	p := navProfile(t)
	stack := NewLayerStack()
	stack.Push(0) // nav
	stack.Push(1) // media

	if got := pressKey(Resolve(p, stack, ButtonA)); got != "media-a" {
		t.Errorf("top layer a = %q", got)
	}
}

func TestResolveFallsThroughLayers(t *testing.T) {
	p := navProfile(t)
	stack := NewLayerStack()
	stack.Push(1) // media
	stack.Push(0) // nav on top, has no b

	if got := pressKey(Resolve(p, stack, ButtonB)); got != "media-b" {
		t.Errorf("fallthrough b = %q", got)
	}
	// And past every layer to the base.
	stack.Clear()
	stack.Push(0)
	if got := pressKey(Resolve(p, stack, ButtonB)); got != "base-b" {
		t.Errorf("base fallthrough b = %q", got)
	}
}

func TestResolveActivatorNeverBinds(t *testing.T) {
	p := navProfile(t)
	stack := NewLayerStack()
	stack.Push(0)
	stack.Push(1)

	if got := Resolve(p, stack, ButtonLB); got != nil {
		t.Errorf("activator resolved to %+v", got)
	}
	if got := Resolve(p, stack, ButtonRB); got != nil {
		t.Errorf("activator resolved to %+v", got)
	}
}

func TestLayerStackPopByIdentity(t *testing.T) {
	stack := NewLayerStack()
	stack.Push(0)
	stack.Push(1)
	stack.Push(2)

	// Releasing the bottom activator leaves the upper layers in order.
	stack.Pop(0)
	if stack.Depth() != 2 {
		t.Fatalf("depth = %d", stack.Depth())
	}
	if top, ok := stack.Top(); !ok || top != 2 {
		t.Fatalf("top = %v %v", top, ok)
	}
	stack.Pop(2)
	if top, ok := stack.Top(); !ok || top != 1 {
		t.Fatalf("top after pops = %v %v", top, ok)
	}
}

func TestLayerStackDuplicatePushIsNoop(t *testing.T) {
	stack := NewLayerStack()
	stack.Push(3)
	stack.Push(3)
	if stack.Depth() != 1 {
		t.Fatalf("depth = %d", stack.Depth())
	}
	stack.Pop(3)
	if stack.Depth() != 0 {
		t.Fatalf("depth after pop = %d", stack.Depth())
	}
}

func TestLayerStackPopMissingIsNoop(t *testing.T) {
	stack := NewLayerStack()
	stack.Push(1)
	stack.Pop(7)
	if stack.Depth() != 1 {
		t.Fatalf("depth = %d", stack.Depth())
	}
}
