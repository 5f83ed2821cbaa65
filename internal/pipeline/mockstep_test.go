package pipeline

import "github.com/jo-hoe/gopix/internal/imagekit"

// mockStep records calls and optionally fails the chain through a resize to 0x0.
type mockStep struct {
	name  string
	calls int
	fail  bool
}

func (m *mockStep) Name() string { return m.name }

func (m *mockStep) Apply(img imagekit.Adapter) imagekit.Adapter {
	m.calls++
	if m.fail {
		return img.Resize(0, 0)
	}
	return img
}

func newMockStep(name string) *mockStep { return &mockStep{name: name} }

func newMockStepWithError(name string) *mockStep { return &mockStep{name: name, fail: true} }
