package domain

// DefaultMeetingName labels meetings created without a title.
const DefaultMeetingName = "New Meeting"

// MeetingOptions are the space settings applied to every created meeting,
// loaded once at startup.
type MeetingOptions struct {
	AccessType     string // OPEN, TRUSTED or RESTRICTED
	Moderation     string // ON or OFF
	AutoTranscribe bool
	AutoRecord     bool
	SmartNotes     bool
}

// Meeting is a created Google Meet space.
type Meeting struct {
	Name        string
	MeetingURI  string
	MeetingCode string
	SpaceName   string
}
