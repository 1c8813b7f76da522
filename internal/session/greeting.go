package session

import (
	"fmt"
	"strings"
)

var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
	"hai":   true,
}

// IsGreeting reports whether a transcript is nothing but a bare greeting,
// optionally followed by a period.
func IsGreeting(transcript string) bool {
	normalized := strings.ToLower(strings.TrimSpace(transcript))
	normalized = strings.TrimSuffix(normalized, ".")
	return greetings[normalized]
}

// Greeting is spoken instead of running the agent when a conversation opens
// with a bare greeting.
func Greeting(name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hello %s! I can help you with your banking information. "+
		"You can ask me to check your balance, show your recent transactions, "+
		"or tell you the latest schemes from SBI or HDFC.", name)
}
