package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	// SyncTaskPending ожидает первой попытки
	SyncTaskPending = "pending"
	// SyncTaskRetry ожидает повторной попытки после ошибки
	SyncTaskRetry = "retry"
	// SyncTaskCompleted обработана успешно
	SyncTaskCompleted = "completed"
	// SyncTaskFailed исчерпала лимит повторов
	SyncTaskFailed = "failed"
)

const (
	// MinTitleLength минимальная длина заголовка бронирования
	MinTitleLength = 3

	// DefaultMaxBookingDays горизонт бронирования по умолчанию
	DefaultMaxBookingDays = 365

	// DefaultSyncTimeoutSeconds таймаут одного обращения к внешнему календарю
	DefaultSyncTimeoutSeconds = 10

	// DefaultFreeBusyCacheTTL время жизни кэша free/busy в секундах
	DefaultFreeBusyCacheTTL = 60

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000
)
