package formatting

import "strings"

// FormatState describes the formatting active at a caret or selection.
type FormatState struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Underline     bool `json:"underline"`
	Strikethrough bool `json:"strikethrough"`
	OrderedList   bool `json:"ordered_list"`
	UnorderedList bool `json:"unordered_list"`
	Link          bool `json:"link"`
}

// FormatStateProvider is implemented by every editing surface that can
// report the formatting at its caret.
type FormatStateProvider interface {
	FormatState() FormatState
}

// TextareaState is the plain-text editing surface: canonical text plus a
// caret. Its format state is a heuristic based on markers around the caret.
type TextareaState struct {
	Text  string
	Caret int
}

var _ FormatStateProvider = TextareaState{}

// FormatState reports a format as active when its opening marker occurs
// before the caret and its closing marker after it. List flags come from the
// prefix of the caret's line.
func (t TextareaState) FormatState() FormatState {
	caret := max(0, min(t.Caret, len(t.Text)))
	before, after := t.Text[:caret], t.Text[caret:]

	var st FormatState
	st.Bold = strings.Contains(before, "**") && strings.Contains(after, "**")
	st.Italic = !st.Bold && strings.Contains(before, "*") && strings.Contains(after, "*")
	st.Underline = strings.Contains(before, "<u>") && strings.Contains(after, "</u>")
	st.Strikethrough = strings.Contains(before, "~~") && strings.Contains(after, "~~")

	start, end := lineAt(t.Text, caret)
	line := t.Text[start:end]
	switch kind, _ := listPrefix(line); kind {
	case BulletList:
		st.UnorderedList = true
	case NumberedList:
		st.OrderedList = true
	}

	// Inside [text](url) on the current line
	rel := caret - start
	for _, loc := range linkAnywhere.FindAllStringIndex(line, -1) {
		if rel > loc[0] && rel < loc[1] {
			st.Link = true
			break
		}
	}
	return st
}
