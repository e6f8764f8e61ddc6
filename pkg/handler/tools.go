package handler

import (
	"encoding/json"
)

// GetTools returns the list of available tools
func GetTools() []Tool {
	return []Tool{
		{
			Name:        "add_recipient",
			Description: "Add one address to the to, cc or bcc field. The address is validated, trimmed and lower-cased. An address already present in any field is ignored.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"field": {
						"type": "string",
						"enum": ["to", "cc", "bcc"],
						"description": "Recipient field. Default: to"
					},
					"address": {
						"type": "string",
						"description": "Email address to add"
					}
				},
				"required": ["address"]
			}`),
		},
		{
			Name:        "add_recipients",
			Description: "Add several addresses separated by ',' or ';'. Invalid addresses are skipped and reported.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"field": {
						"type": "string",
						"enum": ["to", "cc", "bcc"],
						"description": "Recipient field. Default: to"
					},
					"addresses": {
						"type": "string",
						"description": "Addresses, e.g. 'a@x.com, b@y.com; c@z.com'"
					}
				},
				"required": ["addresses"]
			}`),
		},
		{
			Name:        "remove_recipient",
			Description: "Remove an address from a recipient field.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"field": {
						"type": "string",
						"enum": ["to", "cc", "bcc"],
						"description": "Recipient field. Default: to"
					},
					"address": {
						"type": "string",
						"description": "Email address to remove"
					}
				},
				"required": ["address"]
			}`),
		},
		{
			Name:        "move_recipient",
			Description: "Move an address from one recipient field to another. If the move fails the address stays where it was.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"address": {"type": "string"},
					"from": {"type": "string", "enum": ["to", "cc", "bcc"]},
					"to": {"type": "string", "enum": ["to", "cc", "bcc"]}
				},
				"required": ["address", "from", "to"]
			}`),
		},
		{
			Name:        "clear_recipients",
			Description: "Clear one recipient field, or all of them when no field is given.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"field": {"type": "string", "enum": ["to", "cc", "bcc"]}
				},
				"required": []
			}`),
		},
		{
			Name:        "suggest_recipients",
			Description: "Suggest addresses for partial input from recently used recipients and the resend.dev test inboxes.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"input": {"type": "string", "description": "Partial address"}
				},
				"required": []
			}`),
		},
		{
			Name:        "set_subject",
			Description: "Set the subject line.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"subject": {"type": "string"}
				},
				"required": ["subject"]
			}`),
		},
		{
			Name:        "set_message",
			Description: "Replace the message with canonical text: **bold**, *italic*, ~~strikethrough~~, <u>underline</u>, [text](url), and '• ' or '1. ' list lines.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"message": {"type": "string"}
				},
				"required": ["message"]
			}`),
		},
		{
			Name:        "select",
			Description: "Set the selection in the message editor by byte offsets into the visible text. Omit end for a caret.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"start": {"type": "integer"},
					"end": {"type": "integer"}
				},
				"required": ["start"]
			}`),
		},
		{
			Name:        "type_text",
			Description: "Type text at the caret of the message editor, replacing any selection. Newlines start new lines.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"text": {"type": "string"}
				},
				"required": ["text"]
			}`),
		},
		{
			Name:        "press_key",
			Description: "Press Enter or Backspace in the message editor. Enter on an empty list item and Backspace at the start of a list item leave the list.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"key": {"type": "string", "enum": ["Enter", "Backspace"]}
				},
				"required": ["key"]
			}`),
		},
		{
			Name:        "paste",
			Description: "Paste clipboard content into the message editor. Only the plain text is inserted.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"text": {"type": "string", "description": "Plain text flavor"},
					"html": {"type": "string", "description": "Rich flavor, discarded"}
				},
				"required": ["text"]
			}`),
		},
		{
			Name:        "format",
			Description: "Apply a formatting command at the current selection.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {
						"type": "string",
						"enum": ["bold", "italic", "underline", "strikethrough", "insert_link", "insert_ordered_list", "insert_unordered_list"]
					},
					"url": {"type": "string", "description": "Link target for insert_link"},
					"text": {"type": "string", "description": "Link text for insert_link. Default: the selection or the url"}
				},
				"required": ["command"]
			}`),
		},
		{
			Name:        "undo",
			Description: "Restore the message before the last change.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "redo",
			Description: "Reapply a change reverted by undo.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "set_options",
			Description: "Set send options and field visibility. Only the given options change.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"priority": {"type": "string", "enum": ["low", "normal", "high"]},
					"request_receipt": {"type": "boolean"},
					"confidential": {"type": "boolean"},
					"schedule_time": {"type": "string", "description": "Requested send time, e.g. 2024-05-02T09:00"},
					"show_cc": {"type": "boolean"},
					"show_bcc": {"type": "boolean"}
				},
				"required": []
			}`),
		},
		{
			Name:        "get_state",
			Description: "Return the full composer state including the editor markup.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "validate",
			Description: "Check recipients, subject and message without sending.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "send_email",
			Description: "Validate and send the composition. Each to address is sent separately; cc and bcc addresses are reported but not transmitted. The form is cleared a few seconds after a successful send.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "save_draft",
			Description: "Acknowledge a save-draft request. Drafts are not persisted.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "clear",
			Description: "Reset the form to empty.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "sent_history",
			Description: "List recently sent emails with their delivery status, newest first.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "description": "Maximum number of records. Default: 20"}
				},
				"required": []
			}`),
		},
		{
			Name:        "list_templates",
			Description: "List built-in and saved templates, optionally filtered by category or a search query.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"category": {"type": "string"},
					"query": {"type": "string", "description": "Matches name, subject, body and tags"}
				},
				"required": []
			}`),
		},
		{
			Name:        "get_template",
			Description: "Get a template by id.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"}
				},
				"required": ["id"]
			}`),
		},
		{
			Name:        "save_template",
			Description: "Save a new template. Subject and body may contain {{variable}} placeholders.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"subject": {"type": "string"},
					"body": {"type": "string"},
					"category": {"type": "string"},
					"tags": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["name", "subject", "body"]
			}`),
		},
		{
			Name:        "update_template",
			Description: "Update a saved template. Built-in templates cannot be changed.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"},
					"subject": {"type": "string"},
					"body": {"type": "string"},
					"category": {"type": "string"},
					"tags": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["id"]
			}`),
		},
		{
			Name:        "delete_template",
			Description: "Delete a saved template. Built-in templates cannot be deleted.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"}
				},
				"required": ["id"]
			}`),
		},
		{
			Name:        "apply_template",
			Description: "Load a template into the composer, replacing {{variable}} placeholders with the given values. Unresolved placeholders are kept.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"},
					"variables": {"type": "object", "additionalProperties": {"type": "string"}}
				},
				"required": ["id"]
			}`),
		},
		{
			Name:        "template_variables",
			Description: "List the placeholders used by a template with descriptions and default values.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string"}
				},
				"required": ["id"]
			}`),
		},
		{
			Name:        "export_templates",
			Description: "Export saved templates as a JSON array.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
		{
			Name:        "import_templates",
			Description: "Import templates from a JSON array. Each entry is imported independently; the result lists the successes and failures.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"data": {"description": "JSON array of templates, as a string or an array"}
				},
				"required": ["data"]
			}`),
		},
		{
			Name:        "key",
			Description: "Dispatch a keyboard chord such as 'ctrl+b' or 'ctrl+shift+c' to the shortcut dispatcher.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"chord": {"type": "string"}
				},
				"required": ["chord"]
			}`),
		},
		{
			Name:        "shortcuts_help",
			Description: "List the keyboard shortcuts.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}, "required": []}`),
		},
	}
}
