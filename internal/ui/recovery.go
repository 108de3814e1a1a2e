package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// restartDelay пауза перед перезапуском упавшего UI.
var restartDelay = time.Second

// SafeModel оборачивает модель и перехватывает паники в Init, Update и View.
type SafeModel struct {
	model  tea.Model
	logger *zap.Logger
}

// NewSafeModel wraps model with panic recovery.
func NewSafeModel(model tea.Model, logger *zap.Logger) *SafeModel {
	return &SafeModel{model: model, logger: logger}
}

// Init wraps the Init method with panic recovery
func (sm *SafeModel) Init() (cmd tea.Cmd) {
	defer sm.recoverFromPanic("Init", &cmd)
	return sm.model.Init()
}

// Update wraps the Update method with panic recovery
func (sm *SafeModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	model = sm
	defer sm.recoverFromPanic("Update", &cmd)
	sm.model, cmd = sm.model.Update(msg)
	return sm, cmd
}

// View wraps the View method with panic recovery
func (sm *SafeModel) View() (view string) {
	defer func() {
		if r := recover(); r != nil {
			sm.logger.Error("View panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			view = "UI Error: View crashed. Press Ctrl+C to exit."
		}
	}()
	return sm.model.View()
}

func (sm *SafeModel) recoverFromPanic(method string, cmd *tea.Cmd) {
	if r := recover(); r != nil {
		sm.logger.Error("UI method panic recovered",
			zap.String("method", method),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())))
		*cmd = nil
	}
}

// RunWithRecovery запускает программу, созданную create, и перезапускает её
// после аварийного завершения, не более maxRestarts раз.
func RunWithRecovery(ctx context.Context, logger *zap.Logger, maxRestarts int, create func() *tea.Program) error {
	for restarts := 0; ; restarts++ {
		err := runOnce(ctx, create)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		if restarts >= maxRestarts {
			return fmt.Errorf("UI crashed too many times (%d), giving up: %w", restarts, err)
		}
		logger.Error("UI crashed, will restart",
			zap.Error(err),
			zap.Int("restart_count", restarts+1))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartDelay):
		}
	}
}

func runOnce(ctx context.Context, create func() *tea.Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("UI panic: %v", r)
		}
	}()

	program := create()
	stop := context.AfterFunc(ctx, program.Quit)
	defer stop()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}
