package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prasanthmj/composer/pkg/composer"
	"github.com/prasanthmj/composer/pkg/editor"
	"github.com/prasanthmj/composer/pkg/recipients"
)

func fieldArg(args map[string]interface{}, key string) (recipients.Field, error) {
	raw, ok := stringArg(args, key)
	if !ok || raw == "" {
		return recipients.To, nil
	}
	return recipients.ParseField(raw)
}

// handleAddRecipient handles the add_recipient tool
func (h *Handler) handleAddRecipient(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	field, err := fieldArg(args, "field")
	if err != nil {
		return nil, err
	}
	address, err := requiredString(args, "address")
	if err != nil {
		return nil, err
	}
	if err := h.composer.AddRecipient(ctx, field, address); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleAddRecipients handles the add_recipients tool
func (h *Handler) handleAddRecipients(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	field, err := fieldArg(args, "field")
	if err != nil {
		return nil, err
	}
	raw, err := requiredString(args, "addresses")
	if err != nil {
		return nil, err
	}

	skipped := h.composer.AddMultipleRecipients(ctx, field, raw)
	result := struct {
		Recipients recipients.Set `json:"recipients"`
		Skipped    []string       `json:"skipped,omitempty"`
	}{Recipients: h.composer.State().Recipients}
	for _, e := range skipped {
		result.Skipped = append(result.Skipped, e.Error())
	}
	return jsonResponse(result)
}

// handleRemoveRecipient handles the remove_recipient tool
func (h *Handler) handleRemoveRecipient(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	field, err := fieldArg(args, "field")
	if err != nil {
		return nil, err
	}
	address, err := requiredString(args, "address")
	if err != nil {
		return nil, err
	}
	if err := h.composer.RemoveRecipient(field, recipients.Normalize(address)); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleMoveRecipient handles the move_recipient tool
func (h *Handler) handleMoveRecipient(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	address, err := requiredString(args, "address")
	if err != nil {
		return nil, err
	}
	from, err := fieldArg(args, "from")
	if err != nil {
		return nil, err
	}
	to, err := fieldArg(args, "to")
	if err != nil {
		return nil, err
	}
	if err := h.composer.MoveRecipient(recipients.Normalize(address), from, to); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleClearRecipients handles the clear_recipients tool
func (h *Handler) handleClearRecipients(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	var fields []recipients.Field
	if _, ok := stringArg(args, "field"); ok {
		f, err := fieldArg(args, "field")
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := h.composer.ClearRecipients(fields...); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleSuggestRecipients handles the suggest_recipients tool
func (h *Handler) handleSuggestRecipients(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	input, _ := stringArg(args, "input")
	suggestions := h.composer.Suggestions(ctx, input)
	if suggestions == nil {
		suggestions = []recipients.Suggestion{}
	}
	return jsonResponse(suggestions)
}

// handleSetSubject handles the set_subject tool
func (h *Handler) handleSetSubject(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	subject, _ := stringArg(args, "subject")
	h.composer.SetSubject(subject)
	return h.stateResponse()
}

// handleSetMessage handles the set_message tool
func (h *Handler) handleSetMessage(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	message, _ := stringArg(args, "message")
	if err := h.composer.SetMessage(message); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleSelect handles the select tool
func (h *Handler) handleSelect(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	start, ok := intArg(args, "start")
	if !ok {
		return nil, fmt.Errorf("start is required")
	}
	end, ok := intArg(args, "end")
	if !ok {
		end = start
	}
	if err := h.composer.Select(start, end); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleTypeText handles the type_text tool
func (h *Handler) handleTypeText(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	text, err := requiredString(args, "text")
	if err != nil {
		return nil, err
	}
	if err := h.composer.Type(text); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handlePressKey handles the press_key tool (Enter or Backspace)
func (h *Handler) handlePressKey(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	key, err := requiredString(args, "key")
	if err != nil {
		return nil, err
	}
	if err := h.composer.EditKey(key); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handlePaste handles the paste tool
func (h *Handler) handlePaste(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	text, _ := stringArg(args, "text")
	rich, _ := stringArg(args, "html")
	if err := h.composer.Paste(text, rich); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleFormat handles the format tool
func (h *Handler) handleFormat(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	name, err := requiredString(args, "command")
	if err != nil {
		return nil, err
	}
	cmd, err := editor.ParseCommand(name)
	if err != nil {
		return nil, err
	}
	url, _ := stringArg(args, "url")
	text, _ := stringArg(args, "text")
	if err := h.composer.ApplyFormatting(cmd, url, text); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleUndo handles the undo tool
func (h *Handler) handleUndo(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if err := h.composer.Undo(); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleRedo handles the redo tool
func (h *Handler) handleRedo(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if err := h.composer.Redo(); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleSetOptions handles the set_options tool. Only the given options change.
func (h *Handler) handleSetOptions(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if p, ok := stringArg(args, "priority"); ok {
		priority, err := composer.ParsePriority(p)
		if err != nil {
			return nil, err
		}
		if err := h.composer.SetPriority(priority); err != nil {
			return nil, err
		}
	}
	if v, ok := boolArg(args, "request_receipt"); ok {
		h.composer.SetRequestReceipt(v)
	}
	if v, ok := boolArg(args, "confidential"); ok {
		h.composer.SetConfidential(v)
	}
	if v, ok := stringArg(args, "schedule_time"); ok {
		h.composer.SetScheduleTime(v)
	}
	if v, ok := boolArg(args, "show_cc"); ok {
		h.composer.SetShowCC(v)
	}
	if v, ok := boolArg(args, "show_bcc"); ok {
		h.composer.SetShowBCC(v)
	}
	return h.stateResponse()
}

// handleGetState handles the get_state tool
func (h *Handler) handleGetState(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	st := h.composer.State()
	result := struct {
		composer.State
		HTML string `json:"html,omitempty"`
	}{State: st}
	if s := h.composer.Editor(); s != nil {
		result.HTML = s.HTML()
	}
	return jsonResponse(result)
}

// handleValidate handles the validate tool
func (h *Handler) handleValidate(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if err := h.composer.Validate(); err != nil {
		return textResponse("Invalid: " + err.Error()), nil
	}
	return textResponse("Valid"), nil
}

// handleSendEmail handles the send_email tool
func (h *Handler) handleSendEmail(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	report, err := h.composer.Send(ctx)
	if err != nil {
		var partial *composer.PartialSendError
		if errors.As(err, &partial) {
			return nil, fmt.Errorf("partial send: %w", err)
		}
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Email sent successfully to %s", strings.Join(report.Sent, ", "))
	if len(report.NotTransmitted) > 0 {
		fmt.Fprintf(&b, "\nNot transmitted (cc/bcc): %s", strings.Join(report.NotTransmitted, ", "))
	}
	return textResponse(b.String()), nil
}

// handleSaveDraft handles the save_draft tool
func (h *Handler) handleSaveDraft(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	h.composer.SaveDraft(ctx)
	return textResponse("Drafts are not persisted; the composition is kept in this session"), nil
}

// handleClear handles the clear tool
func (h *Handler) handleClear(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	h.composer.Clear()
	return h.stateResponse()
}

// handleSentHistory handles the sent_history tool
func (h *Handler) handleSentHistory(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	limit, ok := intArg(args, "limit")
	if !ok || limit <= 0 {
		limit = 20
	}
	records, err := h.composer.SentHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent emails: %w", err)
	}
	return jsonResponse(records)
}
