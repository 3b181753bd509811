package exam

// Notice codes surfaced through the display sink. The sink decides wording
// and presentation; the codes stay stable for callers and tests.
const (
	NoticeAnswerRequired      = "answer_required"
	NoticeLanguageRequired    = "language_required"
	NoticeLanguageUnsupported = "language_unsupported"
	NoticeDataUnavailable     = "data_unavailable"
	NoticePersistenceDegraded = "persistence_degraded"
	NoticeHistoryUnviewable   = "history_entry_unviewable"
	NoticeFilterFallback      = "filter_fallback"
	NoticeHistoryCleared      = "history_cleared"
	NoticeInvalidSelection    = "invalid_selection"
	NoticeExamDiscarded       = "exam_discarded"
	NoticeTimeExpired         = "time_expired"
)
