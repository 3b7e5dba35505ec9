package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Columns of the chat-log table
const (
	ColDatetime     = "datetime"
	ColAuthor       = "author_name"
	ColText         = "text"
	ColChatbot      = "chatbot"
	ColPersonal     = "personal_msg"
	ColCommand      = "command"
	ColTimeCategory = "timecategory"
	ColMatchID      = "matchId"
)

var requiredColumns = []string{ColDatetime, ColAuthor, ColText, ColChatbot, ColPersonal, ColCommand, ColTimeCategory, ColMatchID}

// Layouts the datetime column has been written with
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseRecords decodes a chat-log table (header row first) into messages.
// Extra columns, such as a leading index column, are ignored.
func ParseRecords(records [][]string) ([]Message, error) {
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("chat log missing column %q", name)
		}
	}

	messages := make([]Message, 0, len(records)-1)
	for line, rec := range records[1:] {
		get := func(col string) string {
			i := cols[col]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		ts, err := ParseTime(get(ColDatetime))
		if err != nil {
			return nil, fmt.Errorf("chat log row %d: %w", line+1, err)
		}
		chatbot, err := parseBool(get(ColChatbot))
		if err != nil {
			return nil, fmt.Errorf("chat log row %d chatbot: %w", line+1, err)
		}
		personal, err := parseBool(get(ColPersonal))
		if err != nil {
			return nil, fmt.Errorf("chat log row %d personal_msg: %w", line+1, err)
		}
		command, err := parseBool(get(ColCommand))
		if err != nil {
			return nil, fmt.Errorf("chat log row %d command: %w", line+1, err)
		}

		messages = append(messages, Message{
			Timestamp: ts,
			Author:    get(ColAuthor),
			Text:      get(ColText),
			Chatbot:   chatbot,
			Personal:  personal,
			Command:   command,
			Phase:     Phase(strings.TrimSpace(get(ColTimeCategory))),
			MatchID:   get(ColMatchID),
		})
	}
	return messages, nil
}

// ParseTime parses a chat timestamp; values without an offset are taken as UTC
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", value)
}

func parseBool(value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	return strconv.ParseBool(value)
}
