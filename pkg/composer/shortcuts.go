package composer

import (
	"context"
	"log/slog"

	"github.com/prasanthmj/composer/pkg/editor"
	"github.com/prasanthmj/composer/pkg/logger"
	"github.com/prasanthmj/composer/pkg/shortcuts"
)

// Mount registers the composer as a listener of d and returns the function
// that unregisters it. Actions run with the event's context when it carries
// one, else with ctx.
func (c *Composer) Mount(ctx context.Context, d *shortcuts.Dispatcher) (unmount func()) {
	id := "composer-" + c.newID()
	d.Register(id, func(action shortcuts.Action, ev *shortcuts.KeyEvent) {
		actx := ctx
		if ev != nil && ev.Context() != nil {
			actx = ev.Context()
		}
		if err := c.HandleAction(actx, action); err != nil {
			c.log.DebugContext(actx, "shortcut action failed",
				logger.Action(string(action)), logger.Error(err))
		}
	})
	c.log.DebugContext(ctx, "composer mounted", slog.String("listener", id))
	return func() { d.Unregister(id) }
}

// HandleAction runs the composer behavior bound to a shortcut action.
func (c *Composer) HandleAction(ctx context.Context, action shortcuts.Action) error {
	switch action {
	case shortcuts.Send:
		_, err := c.Send(ctx)
		return err
	case shortcuts.SaveDraft:
		c.SaveDraft(ctx)
	case shortcuts.Bold:
		return c.ApplyFormatting(editor.CmdBold, "", "")
	case shortcuts.Italic:
		return c.ApplyFormatting(editor.CmdItalic, "", "")
	case shortcuts.Underline:
		return c.ApplyFormatting(editor.CmdUnderline, "", "")
	case shortcuts.InsertLink:
		if c.linkPrompt == nil {
			return ErrNoLinkPrompt
		}
		url, text, ok := c.linkPrompt()
		if !ok {
			return nil
		}
		return c.InsertLink(url, text)
	case shortcuts.ToggleCC:
		c.ToggleCC()
	case shortcuts.ToggleBCC:
		c.ToggleBCC()
	case shortcuts.FocusTo:
		c.focus("to")
	case shortcuts.FocusSubject:
		c.focus("subject")
	case shortcuts.FocusBody:
		c.focus("body")
	case shortcuts.InsertBulletList:
		return c.ApplyFormatting(editor.CmdInsertUnorderedList, "", "")
	case shortcuts.InsertNumberedList:
		return c.ApplyFormatting(editor.CmdInsertOrderedList, "", "")
	case shortcuts.Undo:
		return c.Undo()
	case shortcuts.Redo:
		return c.Redo()
	default:
		return ErrUnsupportedCommand
	}
	return nil
}
