package notifier

import (
	"github.com/bwmarrin/discordgo"
	"github.com/microcosm-cc/bluemonday"
)

// maxFieldLen is the hard ceiling for any text field sent to the channel.
const maxFieldLen = 512

var sanitizer = bluemonday.StrictPolicy()

// Discord posts messages as channel embeds.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord wraps an open discordgo session.
func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

// PostMessage sends the message as a single embed. Every text field is
// hard-truncated before leaving the process.
func (d *Discord) PostMessage(channelID string, msg Message) error {
	embed := &discordgo.MessageEmbed{
		Title:       Truncate(msg.Title, maxFieldLen),
		Description: Truncate(msg.Description, maxFieldLen),
		Color:       0x0099ff,
		Fields:      make([]*discordgo.MessageEmbedField, 0, len(msg.Fields)),
	}
	for _, field := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  Truncate(field.Name, maxFieldLen),
			Value: Truncate(field.Value, maxFieldLen),
		})
	}
	_, err := d.session.ChannelMessageSendEmbed(channelID, embed)
	return err
}

// SanitizeText strips any markup from untrusted on-chain text before it is
// embedded in a message.
func SanitizeText(s string) string {
	return sanitizer.Sanitize(s)
}

// Truncate hard-caps s at limit runes.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
