package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"modaapi/models"
	"modaapi/textutil"
)

// StoryProvider writes a short provenance story for a listing from its
// attributes. Sellers can edit or discard the draft.
type StoryProvider interface {
	GenerateStory(ctx context.Context, garment *models.Garment) (string, error)
}

type GeminiStoryService struct{}

func floatPointer(f float32) *float32 {
	return &f
}

const storyModelName = "gemini-2.5-flash"

func (GeminiStoryService) GenerateStory(ctx context.Context, garment *models.Garment) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GOOGLE_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %v", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Item: %s, category %s, condition %s.", garment.Title, garment.Category, garment.Condition)
	if garment.Brand != nil {
		fmt.Fprintf(&sb, " Brand: %s.", textutil.Title(*garment.Brand))
	}
	if len(garment.Materials) > 0 {
		fmt.Fprintf(&sb, " Materials: %s.", strings.Join(garment.Materials, ", "))
	}
	if garment.IsVintage() {
		sb.WriteString(" This is a vintage piece.")
	}
	if garment.Sustainable {
		sb.WriteString(" Made from sustainable materials.")
	}

	parts := []*genai.Part{{Text: sb.String()}}
	result, err := client.Models.GenerateContent(ctx, storyModelName, []*genai.Content{{Parts: parts}}, &genai.GenerateContentConfig{
		CandidateCount:  1,
		MaxOutputTokens: 400,
		Temperature:     floatPointer(1),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: `You write warm, honest 2-3 sentence stories for secondhand clothing listings. Focus on the garment's history, craft and why it deserves a second life. No emojis, no hashtags, no exaggerated claims. Return only the story text.`},
			},
		},
	})
	if err != nil {
		fmt.Println("Error in GenerateContent:", err)
		return "", fmt.Errorf("%v", err)
	}

	if result.PromptFeedback != nil {
		fmt.Println(result.PromptFeedback.BlockReason)
		fmt.Println(result.PromptFeedback.BlockReasonMessage)
		return "", fmt.Errorf("content violation: %s", result.PromptFeedback.BlockReasonMessage)
	}

	story := strings.TrimSpace(result.Text())
	if story == "" {
		return "", fmt.Errorf("empty story response for garment %d", garment.ID)
	}
	return story, nil
}
