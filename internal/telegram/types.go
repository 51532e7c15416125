package telegram

import "strings"

// Update is the subset of the Bot API webhook payload this service reads.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

// CommandArgument extracts the argument text of a slash command, tolerating
// the /command@BotName form used in group chats. The second return value is
// false when the text is not that command at all.
func CommandArgument(text, command string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, command) {
		return "", false
	}
	rest := trimmed[len(command):]
	if strings.HasPrefix(rest, "@") {
		if idx := strings.IndexAny(rest, " \t\n"); idx >= 0 {
			rest = rest[idx:]
		} else {
			rest = ""
		}
	} else if rest != "" && !strings.ContainsAny(rest[:1], " \t\n") {
		// e.g. /notebook is not /note
		return "", false
	}
	return strings.TrimSpace(rest), true
}
