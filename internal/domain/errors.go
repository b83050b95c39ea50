package domain

import "errors"

var (
	// ErrInsufficientCatalogSize is returned when sampling asks for more items than a bank holds.
	ErrInsufficientCatalogSize = errors.New("insufficient catalog size")
	// ErrEmptyCatalog indicates a session could not draw a single item.
	ErrEmptyCatalog = errors.New("catalog has no items for this exercise")
	// ErrCatalogNotFound indicates the catalog content could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrAlreadyAnswered is returned for a second submission on the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrInvalidPhase is returned when an operation is not allowed in the current phase.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")
	// ErrSessionFinished is returned for any operation but restart on a finished session.
	ErrSessionFinished = errors.New("quiz session finished")
	// ErrSessionClosed is returned once a session has been torn down.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrSessionNotFound is returned when a quiz session does not exist for the caller.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUnknownExercise indicates an exercise kind that is not configured.
	ErrUnknownExercise = errors.New("unknown exercise")
	// ErrUnknownLevel indicates a level filter outside beginner, intermediate and advanced.
	ErrUnknownLevel = errors.New("unknown level")
	// ErrUnknownLanguage indicates a language outside en, vi and zh.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrInvalidAnswer indicates a submission with the wrong shape for the exercise.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidCredentials is returned on a username/password mismatch.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken indicates a missing, expired or forged session token.
	ErrInvalidToken = errors.New("invalid token")
)

// ParseLanguage validates a language code.
func ParseLanguage(code string) (Language, error) {
	switch l := Language(code); l {
	case LanguageEnglish, LanguageVietnamese, LanguageChinese:
		return l, nil
	}
	return "", ErrUnknownLanguage
}
