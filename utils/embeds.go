package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
)

// CreateBrandedEmbed creates a basic embed with bot branding
func CreateBrandedEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text:    BotName,
			IconURL: FooterIcon,
		},
	}
}

// ErrorEmbed is the red variant used for rejected commands
func ErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return CreateBrandedEmbed(title, description, ErrorColor)
}

// InsufficientPointsEmbed creates an embed for a stake the balance cannot cover
func InsufficientPointsEmbed(required, balance decimal.Decimal) *discordgo.MessageEmbed {
	embed := ErrorEmbed(
		"Insufficient balance",
		fmt.Sprintf("**Your balance:** %s %s\n**Required:** %s %s",
			FormatPoints(balance), PointsEmoji, FormatPoints(required), PointsEmoji),
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name:   "How to get more points",
			Value:  "• Use `.deposit` to top up with LTC\n• Play lower stakes to build your balance",
			Inline: false,
		},
	}
	return embed
}

// FormatPoints renders points with thousands separators and two decimals
func FormatPoints(points decimal.Decimal) string {
	fixed := points.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	out := FormatNumber(whole) + "." + frac
	if points.IsNegative() {
		return "-" + out
	}
	return out
}

// FormatNumber adds commas to a string of digits
func FormatNumber(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var result strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(r)
	}
	return result.String()
}

// FormatProfit prefixes gains with + so results read like a ledger line
func FormatProfit(profit decimal.Decimal) string {
	if profit.IsPositive() {
		return "+" + FormatPoints(profit)
	}
	return FormatPoints(profit)
}
