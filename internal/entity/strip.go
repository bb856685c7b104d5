package entity

import "regexp"

var (
	messageClause = regexp.MustCompile("(?i)\\b(?:with\\s+(?:the\\s+)?)?(?:message|msg)\\s+['\"`]?[^'\"`]+['\"`]?")
	messageFlag   = regexp.MustCompile(`(?i)(?:^|\s)(?:-m|--message|--msg)(?:=|\s+)(?:"[^"]*"|'[^']*'|` + "`[^`]*`" + `|\S+)`)
)

// StripMessage removes commit/stash message fragments from text so words
// inside a message cannot influence intent matching.
func StripMessage(text string) string {
	text = messageFlag.ReplaceAllString(text, " ")
	return messageClause.ReplaceAllString(text, " ")
}
