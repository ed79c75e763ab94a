// Package notifier formats and sends chat notifications.
package notifier

// Field is a labeled text block inside a message.
type Field struct {
	Name  string
	Value string
}

// Message is a structured notification, transport agnostic.
type Message struct {
	Title       string
	Description string
	Fields      []Field
}

// Dispatcher delivers messages to a chat channel.
type Dispatcher interface {
	PostMessage(channelID string, msg Message) error
}
