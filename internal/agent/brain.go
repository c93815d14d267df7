package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/gridmind/internal/grid"
	"github.com/rahul/gridmind/internal/observability"
	"github.com/rahul/gridmind/internal/plan"
	"github.com/rahul/gridmind/internal/tools"
)

// HistoryStore is the slice of the persistence layer the brains need.
type HistoryStore interface {
	GetHistory(conversationID uuid.UUID, limit int) ([]llms.MessageContent, error)
}

// PlannerBrain turns a spreadsheet request into an executable plan. It
// runs a tool-calling loop against the model; every mutation tool call
// lands on the PlanBuilder, and the drained steps become the plan.
type PlannerBrain struct {
	Model    llms.Model
	Registry *tools.Registry
	Builder  *tools.PlanBuilder
	History  HistoryStore
	Prompts  *PromptManager
	Logger   *observability.Logger
	MaxSteps int
}

func NewPlannerBrain(model llms.Model, registry *tools.Registry, builder *tools.PlanBuilder, history HistoryStore, prompts *PromptManager, logger *observability.Logger) *PlannerBrain {
	return &PlannerBrain{
		Model:    model,
		Registry: registry,
		Builder:  builder,
		History:  history,
		Prompts:  prompts,
		Logger:   logger,
		MaxSteps: 10,
	}
}

// Plan proposes a plan for the request against the given sheet context.
// The returned message carries the plan with every step pending; the
// caller decides when to execute it.
func (b *PlannerBrain) Plan(ctx context.Context, conversationID uuid.UUID, input string, snap *grid.TableSnapshot, meta *grid.SheetMetadata) (*plan.Message, error) {
	b.Builder.SetContext(snap, meta)

	systemPrompt, err := b.Prompts.GetPlannerPrompt()
	if err != nil {
		return nil, fmt.Errorf("failed to load planner prompt: %v", err)
	}
	if meta != nil {
		systemPrompt += "\n\n## Current Sheet\n" + meta.Summary()
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
	}
	if b.History != nil {
		history, _ := b.History.GetHistory(conversationID, 5)
		messages = append(messages, history...)
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(input)},
	})

	var llmTools []llms.Tool
	for _, t := range b.Registry.All() {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	observability.SetPhase(observability.PhasePlanning, truncate(input, 60))
	defer observability.SetPhase(observability.PhaseIdle, "")

	var finalResponse string

	for i := 0; i < b.MaxSteps; i++ {
		resp, err := b.Model.GenerateContent(ctx, messages, llms.WithTools(llmTools))
		if err != nil {
			return nil, err
		}

		choice := resp.Choices[0]

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		// No tool calls means the planner is done describing the plan.
		if len(choice.ToolCalls) == 0 {
			finalResponse = choice.Content
			break
		}

		for _, tc := range choice.ToolCalls {
			tool := b.Registry.Get(tc.FunctionCall.Name)
			var result string

			if tool == nil {
				result = fmt.Sprintf("Error: Tool %s not found", tc.FunctionCall.Name)
			} else {
				res, err := tool.Execute(ctx, tc.FunctionCall.Arguments)
				if err != nil {
					res = fmt.Sprintf("Error: %v", err)
				}
				result = res
				if b.Logger != nil {
					b.Logger.LogToolCall(conversationID.String(), tool.Name(), tc.FunctionCall.Arguments)
				}
			}

			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       tc.FunctionCall.Name,
						Content:    result,
					},
				},
			})
		}
	}

	steps := b.Builder.Steps()
	if finalResponse == "" {
		if len(steps) == 0 {
			return nil, fmt.Errorf("planner produced neither a plan nor a response")
		}
		finalResponse = fmt.Sprintf("Planned %d step(s).", len(steps))
	}

	if len(steps) == 0 {
		// A pure answer with nothing to execute.
		return plan.NewAssistantMessage(conversationID, finalResponse, nil), nil
	}

	p, err := plan.New(steps)
	if err != nil {
		return nil, fmt.Errorf("planner proposed an invalid plan: %v", err)
	}
	return plan.NewAssistantMessage(conversationID, finalResponse, p), nil
}

// ChatBrain answers data questions directly from the sheet without
// proposing mutations.
type ChatBrain struct {
	Model   llms.Model
	History HistoryStore
	Prompts *PromptManager
}

func NewChatBrain(model llms.Model, history HistoryStore, prompts *PromptManager) *ChatBrain {
	return &ChatBrain{
		Model:   model,
		History: history,
		Prompts: prompts,
	}
}

func (b *ChatBrain) Answer(ctx context.Context, conversationID uuid.UUID, input string, snap *grid.TableSnapshot) (string, error) {
	systemPrompt, err := b.Prompts.GetChatPrompt()
	if err != nil {
		return "", fmt.Errorf("failed to load chat prompt: %v", err)
	}

	if snap != nil && len(snap.Values) > 0 {
		systemPrompt += "\n\n## Sheet Data (row 1 is the header row)\n" + renderTable(snap)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
	}
	if b.History != nil {
		history, _ := b.History.GetHistory(conversationID, 10)
		messages = append(messages, history...)
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(input)},
	})

	resp, err := b.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// renderTable flattens a snapshot into pipe-separated rows, capped so a
// huge sheet cannot blow the context window.
func renderTable(snap *grid.TableSnapshot) string {
	const maxRows = 200
	var sb strings.Builder
	for i, row := range snap.Values {
		if i >= maxRows {
			fmt.Fprintf(&sb, "... %d more rows\n", len(snap.Values)-maxRows)
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprintf("%v", v)
			}
		}
		sb.WriteString(strings.Join(cells, " | "))
		sb.WriteString("\n")
	}
	return sb.String()
}
