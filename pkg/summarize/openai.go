package summarize

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/confabhq/confab/pkg/meeting"
)

const systemPrompt = `You summarize business meeting transcripts.
Respond with a single JSON object with these fields:
  "overview":    2-3 sentence summary of the meeting
  "keyPoints":   array of the most important points raised
  "actionItems": array of concrete follow-ups, with owners when stated
  "topics":      array of discussed topic names
  "sentiment":   one of "positive", "neutral", "negative"
Output JSON only, no prose around it.`

// OpenAI implements Summarizer with a chat-completion call. The model
// is asked for JSON output; malformed responses are repaired before
// parsing.
type OpenAI struct {
	Client *openai.Client
	Model  string
}

// NewOpenAI creates a summarizer using the given pre-configured client.
func NewOpenAI(client *openai.Client, model string) *OpenAI {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAI{Client: client, Model: model}
}

func (o *OpenAI) Summarize(ctx context.Context, in Input) (*Summary, error) {
	transcript := buildTranscript(in.Segments)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}

	user := fmt.Sprintf("Meeting %q, duration %s.\n\n%s\nTranscript:\n%s",
		in.Title, in.Duration.Round(time.Second), buildDecisionNotes(in.Decisions), transcript)

	resp, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("summarize: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("summarize: blocked: %s", choice.Message.Refusal)
	}
	if choice.Message.Content == "" {
		return nil, fmt.Errorf("summarize: no content")
	}
	return decode([]byte(choice.Message.Content))
}

// AsInsight renders a Summary as the persisted end-of-meeting insight.
func AsInsight(meetingID, id string, s *Summary) *meeting.Insight {
	content := s.Overview
	if len(s.ActionItems) > 0 {
		content += "\n\nAction items:"
		for _, a := range s.ActionItems {
			content += "\n- " + a
		}
	}
	return &meeting.Insight{
		ID:        id,
		MeetingID: meetingID,
		Kind:      "summary",
		Title:     "Meeting summary",
		Content:   content,
	}
}
