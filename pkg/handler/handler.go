package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prasanthmj/composer/pkg/composer"
	"github.com/prasanthmj/composer/pkg/logger"
	"github.com/prasanthmj/composer/pkg/shortcuts"
	"github.com/prasanthmj/composer/pkg/templates"
)

// ToolRequest is a named tool call with JSON arguments
type ToolRequest struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ToolResponse struct {
	Content []ToolContent `json:"content"`
}

// Tool describes one callable tool
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Handler runs tool calls against one composer session
type Handler struct {
	composer   *composer.Composer
	templates  *templates.Service
	dispatcher *shortcuts.Dispatcher
	unmount    func()
	log        *slog.Logger
}

// NewHandler creates a handler and mounts the composer on the dispatcher
func NewHandler(c *composer.Composer, t *templates.Service, d *shortcuts.Dispatcher, log *slog.Logger) *Handler {
	h := &Handler{
		composer:   c,
		templates:  t,
		dispatcher: d,
		log:        logger.OrDiscard(log).With(logger.Component("handler")),
	}
	// key tool calls attach their request context to the event
	h.unmount = c.Mount(context.Background(), d)
	return h
}

// Close unregisters the composer from the dispatcher
func (h *Handler) Close() {
	if h.unmount != nil {
		h.unmount()
		h.unmount = nil
	}
}

// CallTool handles tool calls
func (h *Handler) CallTool(ctx context.Context, req *ToolRequest) (*ToolResponse, error) {
	h.log.DebugContext(ctx, "tool call", logger.Tool(req.Name))
	args := req.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	switch req.Name {
	case "add_recipient":
		return h.handleAddRecipient(ctx, args)
	case "add_recipients":
		return h.handleAddRecipients(ctx, args)
	case "remove_recipient":
		return h.handleRemoveRecipient(ctx, args)
	case "move_recipient":
		return h.handleMoveRecipient(ctx, args)
	case "clear_recipients":
		return h.handleClearRecipients(ctx, args)
	case "suggest_recipients":
		return h.handleSuggestRecipients(ctx, args)
	case "set_subject":
		return h.handleSetSubject(ctx, args)
	case "set_message":
		return h.handleSetMessage(ctx, args)
	case "select":
		return h.handleSelect(ctx, args)
	case "type_text":
		return h.handleTypeText(ctx, args)
	case "press_key":
		return h.handlePressKey(ctx, args)
	case "paste":
		return h.handlePaste(ctx, args)
	case "format":
		return h.handleFormat(ctx, args)
	case "undo":
		return h.handleUndo(ctx, args)
	case "redo":
		return h.handleRedo(ctx, args)
	case "set_options":
		return h.handleSetOptions(ctx, args)
	case "get_state":
		return h.handleGetState(ctx, args)
	case "validate":
		return h.handleValidate(ctx, args)
	case "send_email":
		return h.handleSendEmail(ctx, args)
	case "save_draft":
		return h.handleSaveDraft(ctx, args)
	case "clear":
		return h.handleClear(ctx, args)
	case "sent_history":
		return h.handleSentHistory(ctx, args)
	case "list_templates":
		return h.handleListTemplates(ctx, args)
	case "get_template":
		return h.handleGetTemplate(ctx, args)
	case "save_template":
		return h.handleSaveTemplate(ctx, args)
	case "update_template":
		return h.handleUpdateTemplate(ctx, args)
	case "delete_template":
		return h.handleDeleteTemplate(ctx, args)
	case "apply_template":
		return h.handleApplyTemplate(ctx, args)
	case "template_variables":
		return h.handleTemplateVariables(ctx, args)
	case "export_templates":
		return h.handleExportTemplates(ctx, args)
	case "import_templates":
		return h.handleImportTemplates(ctx, args)
	case "key":
		return h.handleKey(ctx, args)
	case "shortcuts_help":
		return h.handleShortcutsHelp(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", req.Name)
	}
}

// ListTools returns available tools
func (h *Handler) ListTools(ctx context.Context) []Tool {
	return GetTools()
}

func textResponse(text string) *ToolResponse {
	return &ToolResponse{
		Content: []ToolContent{
			{
				Type: "text",
				Text: text,
			},
		},
	}
}

func jsonResponse(v interface{}) (*ToolResponse, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format response: %w", err)
	}
	return textResponse(string(data)), nil
}

func (h *Handler) stateResponse() (*ToolResponse, error) {
	return jsonResponse(h.composer.State())
}

func stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func requiredString(args map[string]interface{}, key string) (string, error) {
	v, ok := stringArg(args, key)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func boolArg(args map[string]interface{}, key string) (bool, bool) {
	v, ok := args[key].(bool)
	return v, ok
}

// intArg accepts JSON numbers, which decode as float64
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func stringsArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

func stringMapArg(args map[string]interface{}, key string) map[string]string {
	raw, ok := args[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	return out
}
