package ui

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockModel is a test UI model
type mockModel struct {
	panicOnUpdate bool
	panicOnView   bool
	updates       int32
}

func (m *mockModel) Init() tea.Cmd {
	return tea.Quit
}

func (m *mockModel) Update(tea.Msg) (tea.Model, tea.Cmd) {
	atomic.AddInt32(&m.updates, 1)
	if m.panicOnUpdate {
		panic("update panic test")
	}
	return m, nil
}

func (m *mockModel) View() string {
	if m.panicOnView {
		panic("view panic test")
	}
	return "Test UI"
}

func headlessProgram(model tea.Model) *tea.Program {
	return tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler())
}

func TestSafeModel(t *testing.T) {
	inner := &mockModel{panicOnUpdate: true, panicOnView: true}
	safe := NewSafeModel(inner, zap.NewNop())

	model, cmd := safe.Update(tickMsg(time.Now()))
	assert.Same(t, safe, model)
	assert.Nil(t, cmd)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inner.updates))
	assert.Contains(t, safe.View(), "View crashed")

	inner.panicOnView = false
	assert.Equal(t, "Test UI", safe.View())
}

func TestRunWithRecovery(t *testing.T) {
	restartDelay = time.Millisecond
	defer func() { restartDelay = time.Second }()

	t.Run("restarts after panic", func(t *testing.T) {
		var created int32
		create := func() *tea.Program {
			if atomic.AddInt32(&created, 1) == 1 {
				panic("create panic test")
			}
			return headlessProgram(&mockModel{})
		}

		err := RunWithRecovery(context.Background(), zap.NewNop(), 3, create)
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&created))
	})

	t.Run("gives up", func(t *testing.T) {
		var created int32
		create := func() *tea.Program {
			atomic.AddInt32(&created, 1)
			panic("always")
		}

		err := RunWithRecovery(context.Background(), zap.NewNop(), 2, create)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too many times")
		assert.Equal(t, int32(3), atomic.LoadInt32(&created))
	})
}
