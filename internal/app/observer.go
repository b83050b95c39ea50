package app

import "hanzi-quiz-service/internal/domain"

// Observer is notified about session lifecycle. Calls happen after the
// session lock is released, on the goroutine that caused the change.
type Observer interface {
	SessionStarted(info domain.SessionInfo)
	AnswerRecorded(info domain.SessionInfo, result domain.AnswerResult)
	SessionFinished(summary domain.SessionSummary)
}

type observers []Observer

func (o observers) SessionStarted(info domain.SessionInfo) {
	for _, ob := range o {
		ob.SessionStarted(info)
	}
}

func (o observers) AnswerRecorded(info domain.SessionInfo, result domain.AnswerResult) {
	for _, ob := range o {
		ob.AnswerRecorded(info, result)
	}
}

func (o observers) SessionFinished(summary domain.SessionSummary) {
	for _, ob := range o {
		ob.SessionFinished(summary)
	}
}
