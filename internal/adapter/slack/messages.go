package slack

import "github.com/alessio-signorini/slack-meet-command/internal/domain"

// Message is an outbound Slack message payload. The builders below form the
// closed set of shapes this service ever sends.
type Message struct {
	ResponseType string  `json:"response_type"`
	Text         string  `json:"text,omitempty"`
	Blocks       []Block `json:"blocks,omitempty"`
}

// Block is a Block Kit layout block.
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Element is a Block Kit interactive element.
type Element struct {
	Type  string `json:"type"`
	Text  *Text  `json:"text,omitempty"`
	URL   string `json:"url,omitempty"`
	Style string `json:"style,omitempty"`
}

// Acknowledgment is the unconditional ephemeral reply sent while the meeting
// is created in the background.
func Acknowledgment() Message {
	return Message{
		ResponseType: "ephemeral",
		Text:         "⏳ Creating meeting...",
	}
}

// AuthRequired asks the user to connect their Google account.
func AuthRequired(authURL string) Message {
	prompt := "🔐 Click below to authorize this app to create *Google Meet* links on your behalf."
	return Message{
		ResponseType: "ephemeral",
		Text:         prompt,
		Blocks: []Block{
			{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: prompt},
			},
			{
				Type: "actions",
				Elements: []Element{
					{
						Type:  "button",
						Text:  &Text{Type: "plain_text", Text: "Connect Google Account", Emoji: true},
						URL:   authURL,
						Style: "primary",
					},
				},
			},
		},
	}
}

// MeetingCreated announces the created meeting in the channel. The title is
// shown only when the user provided one.
func MeetingCreated(meetingName, meetingURI string) Message {
	text := ":google-meet: " + meetingURI
	if meetingName != domain.DefaultMeetingName {
		text = ":google-meet: *" + meetingName + "* " + meetingURI
	}
	return Message{
		ResponseType: "in_channel",
		Blocks: []Block{
			{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: text},
			},
		},
	}
}

// AccountConnected is the deferred confirmation delivered once the OAuth
// flow completes while a command is still owed a reply.
func AccountConnected() Message {
	return Message{
		ResponseType: "ephemeral",
		Text:         "✅ Google account connected! Run `/meet` again to create your meeting.",
	}
}

// ErrorMessage is an ephemeral failure notice. Callers pass user-safe text
// only; internal error detail stays in the logs.
func ErrorMessage(text string) Message {
	return Message{
		ResponseType: "ephemeral",
		Text:         text,
	}
}
