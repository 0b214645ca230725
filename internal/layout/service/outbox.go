package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"floor-designer/internal/layout/models"
)

// ============================================================
// Persistence commands
// ============================================================

// Gateway сохраняет объекты раскладки.
type Gateway interface {
	CreateItem(ctx context.Context, layoutID string, item models.ItemPayload) error
	UpdateItem(ctx context.Context, layoutID string, item models.ItemPayload) error
	DeleteItem(ctx context.Context, layoutID, itemID string) error
}

type CommandOp string

const (
	OpCreate CommandOp = "create"
	OpUpdate CommandOp = "update"
	OpDelete CommandOp = "delete"
)

type Command struct {
	Op       CommandOp
	LayoutID string
	Item     models.ItemPayload
	// OnError получает ошибку хранения; вызывается из горутины Outbox.
	OnError func(error)
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s/%s", c.Op, c.LayoutID, c.Item.ID)
}

var ErrOutboxFull = errors.New("persistence queue is full")

// ============================================================
// Outbox
// ============================================================

// Outbox хранит исходящие команды хранения. Мутации только ставят команды,
// отдельная горутина (Run) отправляет их в шлюз.
type Outbox struct {
	gateway Gateway
	queue   chan Command
	logger  *log.Logger
}

func NewOutbox(gateway Gateway, capacity int, logger *log.Logger) *Outbox {
	if capacity <= 0 {
		capacity = 256
	}
	return &Outbox{
		gateway: gateway,
		queue:   make(chan Command, capacity),
		logger:  logger,
	}
}

// Enqueue не блокирует: при переполнении команда отбрасывается с ошибкой.
func (o *Outbox) Enqueue(cmd Command) error {
	select {
	case o.queue <- cmd:
		return nil
	default:
		o.logger.Warn("persistence queue full, dropping command", "command", cmd.String())
		return ErrOutboxFull
	}
}

// Pending возвращает число команд в очереди.
func (o *Outbox) Pending() int {
	return len(o.queue)
}

// Run отправляет команды до отмены ctx.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-o.queue:
			o.dispatch(ctx, cmd)
		}
	}
}

// Flush синхронно отправляет всё, что уже стоит в очереди.
func (o *Outbox) Flush(ctx context.Context) {
	for {
		select {
		case cmd := <-o.queue:
			o.dispatch(ctx, cmd)
		default:
			return
		}
	}
}

func (o *Outbox) dispatch(ctx context.Context, cmd Command) {
	var err error
	switch cmd.Op {
	case OpCreate:
		err = o.gateway.CreateItem(ctx, cmd.LayoutID, cmd.Item)
	case OpUpdate:
		err = o.gateway.UpdateItem(ctx, cmd.LayoutID, cmd.Item)
	case OpDelete:
		err = o.gateway.DeleteItem(ctx, cmd.LayoutID, cmd.Item.ID)
	default:
		err = fmt.Errorf("unknown command op %q", cmd.Op)
	}

	if err == nil {
		o.logger.Debug("persisted", "command", cmd.String())
		return
	}

	o.logger.Error("persist failed", "command", cmd.String(), "err", err)
	if cmd.OnError != nil {
		cmd.OnError(fmt.Errorf("%s: %w", cmd.Op, err))
	}
}
