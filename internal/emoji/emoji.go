package emoji

import "sync/atomic"

// [emoji, fallback]
var emojiMap = map[string][2]string{
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"success":    {"✅", "[OK]"},
	"critical":   {"🔴", "[CRIT]"},
	"file":       {"📄", "[FILE]"},
	"upload":     {"📤", "[UP]"},
	"statistics": {"📊", "[STATS]"},
	"pattern":    {"🔍", "[PAT]"},
	"category":   {"🏷️", "[CAT]"},
	"code":       {"🔢", "[#]"},
	"chat":       {"💬", "[CHAT]"},
	"user":       {"🧑", "[YOU]"},
	"assistant":  {"🤖", "[AI]"},
	"building":   {"⏳", "[...]"},
	"ready":      {"🟢", "[RDY]"},
	"idle":       {"⚪", "[IDLE]"},
	"watch":      {"👀", "[WATCH]"},
	"config":     {"⚙️", "[CFG]"},
	"folder":     {"📁", "[DIR]"},
	"tip":        {"💡", "[TIP]"},
	"target":     {"🎯", "[>]"},
	"clock":      {"⏱️", "[T]"},
}

var emojiDisabled atomic.Bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled.Store(disabled)
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled.Load()
}

// GetEmoji returns the emoji for key, or its ASCII fallback when emoji are disabled
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if emojiDisabled.Load() {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}

// ForRagStatus returns the symbol for an index status name
func ForRagStatus(status string) string {
	switch status {
	case "ready":
		return GetEmoji("ready")
	case "building":
		return GetEmoji("building")
	case "error":
		return GetEmoji("error")
	default:
		return GetEmoji("idle")
	}
}
