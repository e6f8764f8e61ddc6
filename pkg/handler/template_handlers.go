package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prasanthmj/composer/pkg/shortcuts"
	"github.com/prasanthmj/composer/pkg/templates"
)

var errNoTemplates = errors.New("templates are not configured")

// handleListTemplates handles the list_templates tool
func (h *Handler) handleListTemplates(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}

	var list []templates.Template
	if category, ok := stringArg(args, "category"); ok && category != "" {
		list = h.templates.ByCategory(ctx, category)
	} else if query, ok := stringArg(args, "query"); ok && query != "" {
		list = h.templates.Search(ctx, query)
	} else {
		list = h.templates.All(ctx)
	}

	type TemplateInfo struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Subject   string `json:"subject"`
		Category  string `json:"category,omitempty"`
		IsDefault bool   `json:"is_default"`
	}
	infos := make([]TemplateInfo, 0, len(list))
	for _, t := range list {
		infos = append(infos, TemplateInfo{
			ID:        t.ID,
			Name:      t.Name,
			Subject:   t.Subject,
			Category:  t.Category,
			IsDefault: t.IsDefault,
		})
	}
	return jsonResponse(infos)
}

// handleGetTemplate handles the get_template tool
func (h *Handler) handleGetTemplate(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}
	id, err := requiredString(args, "id")
	if err != nil {
		return nil, err
	}
	t, err := h.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonResponse(t)
}

func draftArg(args map[string]interface{}) templates.Draft {
	var d templates.Draft
	d.Name, _ = stringArg(args, "name")
	d.Subject, _ = stringArg(args, "subject")
	d.Body, _ = stringArg(args, "body")
	d.Category, _ = stringArg(args, "category")
	d.Tags = stringsArg(args, "tags")
	return d
}

// handleSaveTemplate handles the save_template tool
func (h *Handler) handleSaveTemplate(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}
	t, err := h.templates.Save(ctx, draftArg(args))
	if err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}
	return jsonResponse(t)
}

// handleUpdateTemplate handles the update_template tool
func (h *Handler) handleUpdateTemplate(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}
	id, err := requiredString(args, "id")
	if err != nil {
		return nil, err
	}

	var patch templates.Patch
	for key, dst := range map[string]**string{
		"name":     &patch.Name,
		"subject":  &patch.Subject,
		"body":     &patch.Body,
		"category": &patch.Category,
	} {
		if v, ok := stringArg(args, key); ok {
			*dst = &v
		}
	}
	if _, ok := args["tags"]; ok {
		tags := stringsArg(args, "tags")
		patch.Tags = &tags
	}

	t, err := h.templates.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return jsonResponse(t)
}

// handleDeleteTemplate handles the delete_template tool
func (h *Handler) handleDeleteTemplate(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}
	id, err := requiredString(args, "id")
	if err != nil {
		return nil, err
	}
	if err := h.templates.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete template: %w", err)
	}
	return textResponse(fmt.Sprintf("Template %s deleted", id)), nil
}

// handleApplyTemplate handles the apply_template tool: it loads the template
// into the composer
func (h *Handler) handleApplyTemplate(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	id, err := requiredString(args, "id")
	if err != nil {
		return nil, err
	}
	if err := h.composer.LoadTemplate(ctx, id, stringMapArg(args, "variables")); err != nil {
		return nil, err
	}
	return h.stateResponse()
}

// handleTemplateVariables handles the template_variables tool
func (h *Handler) handleTemplateVariables(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}
	id, err := requiredString(args, "id")
	if err != nil {
		return nil, err
	}
	t, err := h.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	vars := h.templates.ExtractVariables(t)
	if vars == nil {
		vars = []templates.Variable{}
	}
	return jsonResponse(vars)
}

// handleExportTemplates handles the export_templates tool
func (h *Handler) handleExportTemplates(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}
	data, err := h.templates.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export templates: %w", err)
	}
	return textResponse(string(data)), nil
}

// handleImportTemplates handles the import_templates tool. data may be a JSON
// string or an array.
func (h *Handler) handleImportTemplates(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	if h.templates == nil {
		return nil, errNoTemplates
	}

	var data []byte
	switch v := args["data"].(type) {
	case string:
		data = []byte(v)
	case nil:
		return nil, fmt.Errorf("data is required")
	default:
		var err error
		if data, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("failed to read data: %w", err)
		}
	}
	return jsonResponse(h.templates.Import(ctx, data))
}

// handleKey handles the key tool: a chord such as "ctrl+b" is dispatched to
// every mounted composer
func (h *Handler) handleKey(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	chord, err := requiredString(args, "chord")
	if err != nil {
		return nil, err
	}
	ev, err := shortcuts.ParseChord(chord)
	if err != nil {
		return nil, err
	}
	ev = ev.WithContext(ctx)

	action, _ := h.dispatcher.ActionFor(ev)
	matched := h.dispatcher.Handle(ev)

	result := struct {
		Matched bool             `json:"matched"`
		Action  shortcuts.Action `json:"action,omitempty"`
		State   interface{}      `json:"state"`
	}{Matched: matched, Action: action, State: h.composer.State()}
	return jsonResponse(result)
}

// handleShortcutsHelp handles the shortcuts_help tool
func (h *Handler) handleShortcutsHelp(ctx context.Context, args map[string]interface{}) (*ToolResponse, error) {
	return textResponse(h.dispatcher.Help()), nil
}
