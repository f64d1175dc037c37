package adapter

import (
	"context"

	"telegram-lead-bot/internal/domain/model"
)

// SubmissionSink forwards a completed lead to the spreadsheet store. Every
// failure mode collapses into false; there is no partial success.
type SubmissionSink interface {
	Submit(ctx context.Context, lead model.LeadSubmission) bool
}
