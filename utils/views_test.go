package utils

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestOptimizeEmbedPayload(t *testing.T) {
	// Test with nil embed
	if result := OptimizeEmbedPayload(nil); result != nil {
		t.Errorf("Expected nil for nil input, got %v", result)
	}

	// Test with empty embed
	embed := &discordgo.MessageEmbed{}
	result := OptimizeEmbedPayload(embed)
	if result == nil {
		t.Error("Expected non-nil result for empty embed")
	}

	// Test with populated embed
	embed = &discordgo.MessageEmbed{
		Title:       "  🏰 Tower  ",
		Description: "  Pick a tile on row 1  ",
		Color:       0xFF0000,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "  Footer Text  ",
		},
		Image: &discordgo.MessageEmbedImage{
			URL: "attachment://tower.png",
		},
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "  Bet  ",
				Value:  "  100.00  ",
				Inline: true,
			},
			{
				Name:   "",
				Value:  "Empty Name",
				Inline: false,
			},
			{
				Name:   "Field 3",
				Value:  "",
				Inline: false,
			},
		},
	}

	result = OptimizeEmbedPayload(embed)

	// Check that whitespace was trimmed
	if result.Title != "🏰 Tower" {
		t.Errorf("Expected '🏰 Tower', got '%s'", result.Title)
	}

	if result.Description != "Pick a tile on row 1" {
		t.Errorf("Expected 'Pick a tile on row 1', got '%s'", result.Description)
	}

	// Check that color was preserved
	if result.Color != 0xFF0000 {
		t.Errorf("Expected color 0xFF0000, got %d", result.Color)
	}

	// Check that footer was preserved and trimmed
	if result.Footer == nil || result.Footer.Text != "Footer Text" {
		t.Errorf("Expected trimmed footer text 'Footer Text', got %v", result.Footer)
	}

	// The rendered board must survive optimization
	if result.Image == nil || result.Image.URL != "attachment://tower.png" {
		t.Errorf("Expected attachment image, got %v", result.Image)
	}
	if result.Thumbnail != nil {
		t.Errorf("Expected no thumbnail, got %v", result.Thumbnail)
	}

	// Check that only valid fields were included (first field only)
	if len(result.Fields) != 1 {
		t.Errorf("Expected 1 field, got %d", len(result.Fields))
	}

	if len(result.Fields) > 0 && result.Fields[0].Name != "Bet" {
		t.Errorf("Expected field name 'Bet', got '%s'", result.Fields[0].Name)
	}
}

func TestIsWebhookExpiredError(t *testing.T) {
	// Test nil error
	if isWebhookExpiredError(nil) {
		t.Error("Expected false for nil error")
	}

	// Test webhook expired errors
	expiredErrors := []string{
		"Unknown Webhook",
		"\"code\": 10015",
		"404 not found",
		"Unknown interaction",
	}

	for _, errMsg := range expiredErrors {
		err := &MockError{Message: errMsg}
		if !isWebhookExpiredError(err) {
			t.Errorf("Expected error '%s' to be webhook expired", errMsg)
		}
	}

	// Test non-expired errors
	normalErrors := []string{
		"network timeout",
		"500 internal server error",
		"connection refused",
	}

	for _, errMsg := range normalErrors {
		err := &MockError{Message: errMsg}
		if isWebhookExpiredError(err) {
			t.Errorf("Expected error '%s' to not be webhook expired", errMsg)
		}
	}
}

// MockError for testing
type MockError struct {
	Message string
}

func (e *MockError) Error() string {
	return e.Message
}
func TestDisplayName(t *testing.T) {
	user := &discordgo.User{Username: "sky", GlobalName: "Sky Runner"}
	if got := DisplayName(&discordgo.Member{Nick: "Captain"}, user); got != "Captain" {
		t.Errorf("Expected nickname, got '%s'", got)
	}
	if got := DisplayName(nil, user); got != "Sky Runner" {
		t.Errorf("Expected global name, got '%s'", got)
	}
	if got := DisplayName(nil, &discordgo.User{Username: "sky"}); got != "sky" {
		t.Errorf("Expected username, got '%s'", got)
	}
}
