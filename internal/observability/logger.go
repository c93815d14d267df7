package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeUndo        EventType = "undo"
	EventTypeToolCall    EventType = "tool_call"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeLLM         EventType = "llm"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Data           any       `json:"data"`
	Timestamp      time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(conversationID, messageID string, stepCount int, summary string) {
	l.Log(Event{
		Type:           EventTypePlan,
		ConversationID: conversationID,
		MessageID:      messageID,
		Data: map[string]any{
			"steps":   stepCount,
			"summary": summary,
		},
	})
}

func (l *Logger) LogStep(messageID string, index int, status, result string) {
	l.Log(Event{
		Type:      EventTypeStep,
		MessageID: messageID,
		Data: map[string]any{
			"step":   index,
			"status": status,
			"result": result,
		},
	})
}

func (l *Logger) LogUndo(messageID string, sheetsDeleted, rangesCleared int, result string) {
	l.Log(Event{
		Type:      EventTypeUndo,
		MessageID: messageID,
		Data: map[string]any{
			"sheets_deleted": sheetsDeleted,
			"ranges_cleared": rangesCleared,
			"result":         result,
		},
	})
}

func (l *Logger) LogToolCall(conversationID, tool, args string) {
	l.Log(Event{
		Type:           EventTypeToolCall,
		ConversationID: conversationID,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogPolicyCheck(messageID, actionKind, effect, reason string) {
	l.Log(Event{
		Type:      EventTypePolicyCheck,
		MessageID: messageID,
		Data: map[string]string{
			"action": actionKind,
			"effect": effect,
			"reason": reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(conversationID string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:           EventTypeLLM,
		ConversationID: conversationID,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
