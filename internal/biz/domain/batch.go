package domain

// BatchState holds the pending multiline batch (value object)
type BatchState struct {
	Active       bool
	Ref          string
	TargetChatID string
	PendingText  string
}

// HasPending checks if there is text ready to flush
func (b *BatchState) HasPending() bool {
	return b.TargetChatID != "" && b.PendingText != ""
}

// Append adds a line to the pending text
func (b *BatchState) Append(text string) {
	if b.PendingText == "" {
		b.PendingText = text
		return
	}
	b.PendingText += "\n" + text
}

// Take returns the pending target and text and clears the text
func (b *BatchState) Take() (chatID, text string) {
	chatID, text = b.TargetChatID, b.PendingText
	b.PendingText = ""
	return chatID, text
}

// Reset clears the batch
func (b *BatchState) Reset() {
	*b = BatchState{}
}
