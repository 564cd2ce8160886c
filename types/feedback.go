package types

import "time"

// FeedbackKind enumerates the feedback signals a user can give on an item.
type FeedbackKind string

const (
	FeedbackLike               FeedbackKind = "like"
	FeedbackSave               FeedbackKind = "save"
	FeedbackHideNotRelevant    FeedbackKind = "hide_not_relevant"
	FeedbackHideNotNow         FeedbackKind = "hide_not_now"
	FeedbackHideTooSuperficial FeedbackKind = "hide_too_superficial"
	FeedbackHideTooAdvanced    FeedbackKind = "hide_too_advanced"
)

// Positive reports whether the kind expresses interest in the content.
func (k FeedbackKind) Positive() bool {
	return k == FeedbackLike || k == FeedbackSave
}

// Valid reports whether the kind is one of the known feedback signals.
func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackLike, FeedbackSave, FeedbackHideNotRelevant,
		FeedbackHideNotNow, FeedbackHideTooSuperficial, FeedbackHideTooAdvanced:
		return true
	}
	return false
}

// InteractionEvent records one feedback action. Events are append-only;
// many events per (user, content) pair are allowed and all are retained.
type InteractionEvent struct {
	ID        string       `json:"id,omitempty"`
	UserID    string       `json:"user_id"`
	ContentID string       `json:"content_id"`
	Kind      FeedbackKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}
