package discord

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/bwmarrin/discordgo"

	"newsdigest/internal/types"
)

const (
	// MaxEmbeds is the number of embeds Discord accepts in one message.
	MaxEmbeds = 10

	maxTitle       = 256
	maxDescription = 4096
	maxFooter      = 2048

	// MaxMessageChars caps the combined embed text of one message.
	MaxMessageChars = 6000

	DefaultColor = 0x5865F2
)

// Palette accents ranks 1 to 3: gold, silver, bronze.
var Palette = []int{0xFFD700, 0xC0C0C0, 0xCD7F32}

type ErrorResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
	Global     bool    `json:"global"`
}

// ColorForRank returns the accent for a 1-based rank.
func ColorForRank(rank int) int {
	if rank >= 1 && rank <= len(Palette) {
		return Palette[rank-1]
	}
	return DefaultColor
}

// Timestamp parses published leniently and falls back to now, since Discord rejects an
// empty timestamp.
func Timestamp(published string, now time.Time) string {
	if published != "" {
		if t, err := dateparse.ParseAny(published); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return now.UTC().Format(time.RFC3339)
}

func NewEmbed(item types.CuratedItem, rank int, footer string, now time.Time) *discordgo.MessageEmbed {
	description := item.Summary
	if description == "" {
		description = "No summary available."
	}

	title := item.Title
	if title == "" {
		title = "No Title"
	}

	title = truncate(fmt.Sprintf("[%d] %s", rank, title), maxTitle)
	footer = truncate(footer, maxFooter)

	room := min(maxDescription, MaxMessageChars-runeLen(title)-runeLen(footer))

	embed := &discordgo.MessageEmbed{
		Title:       title,
		URL:         item.ID,
		Description: truncate(description, room),
		Color:       ColorForRank(rank),
		Timestamp:   Timestamp(item.PublishedAt, now),
	}

	if footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}

	return embed
}

// embedChars counts the embed text Discord sums toward MaxMessageChars.
func embedChars(e *discordgo.MessageEmbed) int {
	n := runeLen(e.Title) + runeLen(e.Description)
	if e.Footer != nil {
		n += runeLen(e.Footer.Text)
	}
	return n
}

func runeLen(s string) int {
	return len([]rune(s))
}

// BuildMessages renders items in rank order. A message holds at most MaxEmbeds embeds and
// MaxMessageChars of embed text; the rest go to follow-up messages. Only the first message
// carries the header.
func BuildMessages(items []types.CuratedItem, header, footer string, now time.Time) []*discordgo.WebhookParams {
	var messages []*discordgo.WebhookParams
	var msg *discordgo.WebhookParams
	chars := 0

	for i, item := range items {
		embed := NewEmbed(item, i+1, footer, now)
		size := embedChars(embed)

		if msg == nil || len(msg.Embeds) == MaxEmbeds || chars+size > MaxMessageChars {
			msg = &discordgo.WebhookParams{}
			if len(messages) == 0 {
				msg.Content = header
			}
			messages = append(messages, msg)
			chars = 0
		}

		msg.Embeds = append(msg.Embeds, embed)
		chars += size
	}

	return messages
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
