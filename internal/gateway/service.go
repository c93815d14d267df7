package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rahul/gridmind/internal/agent"
	"github.com/rahul/gridmind/internal/engine"
	"github.com/rahul/gridmind/internal/grid"
	"github.com/rahul/gridmind/internal/plan"
	"github.com/rahul/gridmind/internal/store"
)

// Messenger defines the interface for communication gateways (Telegram, Discord, HTTP).
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// SheetSource provides the active sheet context for planning. The
// in-memory document implements it; bridge deployments can leave it
// nil and the planner works from the conversation alone.
type SheetSource interface {
	SnapshotSheet(name string) (grid.TableSnapshot, error)
}

// Service is the shared flow behind every gateway: persist the user
// turn, plan, execute, persist the outcome, and honour undo requests.
type Service struct {
	Planner *agent.PlannerBrain
	Chat    *agent.ChatBrain
	Runner  *engine.Runner
	Store   *store.Store
	Sheets  SheetSource
	Sheet   string // active sheet name for context snapshots
}

// sheetContext fetches the current snapshot and metadata, or nils when
// no local sheet is available.
func (s *Service) sheetContext() (*grid.TableSnapshot, *grid.SheetMetadata) {
	if s.Sheets == nil || s.Sheet == "" {
		return nil, nil
	}
	snap, err := s.Sheets.SnapshotSheet(s.Sheet)
	if err != nil {
		return nil, nil
	}
	meta := grid.Analyze(snap)
	return &snap, &meta
}

// HandleChat runs the full request flow and returns the stored
// assistant message. When the planner proposed mutations the message
// carries the executed plan and its undo log.
func (s *Service) HandleChat(ctx context.Context, conversationID uuid.UUID, channel, text string) (*plan.Message, error) {
	if err := s.Store.EnsureConversation(conversationID, channel); err != nil {
		return nil, fmt.Errorf("failed to record conversation: %w", err)
	}
	if err := s.Store.AddUserMessage(conversationID, text); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	snap, meta := s.sheetContext()
	m, err := s.Planner.Plan(ctx, conversationID, text, snap, meta)
	if err != nil {
		return nil, err
	}

	if m.Plan != nil {
		s.Runner.Run(ctx, m)
	}
	if err := s.Store.SaveAssistantMessage(m); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}
	return m, nil
}

// HandleAsk answers a data question without planning mutations.
func (s *Service) HandleAsk(ctx context.Context, conversationID uuid.UUID, channel, text string) (string, error) {
	if s.Chat == nil {
		return "", errors.New("chat mode is not configured")
	}
	if err := s.Store.EnsureConversation(conversationID, channel); err != nil {
		return "", fmt.Errorf("failed to record conversation: %w", err)
	}
	if err := s.Store.AddUserMessage(conversationID, text); err != nil {
		return "", fmt.Errorf("failed to record user message: %w", err)
	}

	snap, _ := s.sheetContext()
	answer, err := s.Chat.Answer(ctx, conversationID, text, snap)
	if err != nil {
		return "", err
	}
	reply := plan.NewAssistantMessage(conversationID, answer, nil)
	if err := s.Store.SaveAssistantMessage(reply); err != nil {
		return "", fmt.Errorf("failed to persist assistant message: %w", err)
	}
	return answer, nil
}

// ErrNothingToUndo is returned when the conversation holds no live
// reversal log.
var ErrNothingToUndo = errors.New("nothing to undo")

// HandleUndo reverses the most recent undoable message in the
// conversation, at most once.
func (s *Service) HandleUndo(ctx context.Context, conversationID uuid.UUID) (string, error) {
	m, err := s.Store.LatestUndoable(conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNothingToUndo
	}
	if err != nil {
		return "", err
	}
	return s.undoMessage(ctx, m)
}

// HandleUndoMessage reverses one specific assistant message.
func (s *Service) HandleUndoMessage(ctx context.Context, messageID uuid.UUID) (string, error) {
	m, err := s.Store.GetMessage(messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNothingToUndo
	}
	if err != nil {
		return "", err
	}
	return s.undoMessage(ctx, m)
}

func (s *Service) undoMessage(ctx context.Context, m *plan.Message) (string, error) {
	result, err := s.Runner.Undo(ctx, m)
	if err != nil {
		return "", err
	}
	// The in-memory latch already rejects a retry in this process. If the
	// persist fails, a retry after a restart would re-issue the reversal;
	// the error text surfaces that so the operator can reconcile.
	if err := s.Store.MarkUndone(m.ID); err != nil {
		return "", fmt.Errorf("undo applied but failed to persist the latch: %w", err)
	}
	return result, nil
}

// RenderPlan formats a finished plan for a chat reply.
func RenderPlan(m *plan.Message) string {
	if m.Plan == nil {
		return m.Content
	}
	var sb strings.Builder
	sb.WriteString(m.Content)
	sb.WriteString("\n")
	for _, step := range m.Plan.Snapshot() {
		icon := "⏸"
		switch step.Status {
		case plan.StatusDone:
			icon = "✅"
		case plan.StatusError:
			icon = "❌"
		case plan.StatusExecuting:
			icon = "⚙️"
		}
		fmt.Fprintf(&sb, "\n%s Step %d: %s", icon, step.Index, step.Description)
		if step.Status == plan.StatusError && step.Result != "" {
			fmt.Fprintf(&sb, "\n   %s", step.Result)
		}
	}
	if m.Undo != nil && !m.Undo.Empty() && !m.Undone() {
		sb.WriteString("\n\nSend /undo to reverse these changes.")
	}
	return sb.String()
}
