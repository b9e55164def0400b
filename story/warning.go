package story

import (
	"fmt"

	"go.uber.org/zap"
)

// WarningKind classifica i problemi non fatali incontrati in decodifica
type WarningKind string

const (
	WarnAttribute    WarningKind = "attribute"
	WarnPosition     WarningKind = "position"
	WarnMetadata     WarningKind = "metadata"
	WarnStoryData    WarningKind = "story-data"
	WarnStoryTitle   WarningKind = "story-title"
	WarnStartPassage WarningKind = "start-passage"
	WarnStrayText    WarningKind = "stray-text"
	WarnDuplicate    WarningKind = "duplicate"
)

// Warning descrive un problema da cui la decodifica si è ripresa usando un default
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Subject == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s (%s): %s", w.Kind, w.Subject, w.Message)
}

// WarningLog accumula i warning e li registra sul logger man mano che arrivano
type WarningLog struct {
	logger *zap.Logger
	list   []Warning
}

// NewWarningLog crea un collettore; logger nil equivale a nessun log
func NewWarningLog(logger *zap.Logger) *WarningLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarningLog{logger: logger}
}

// Add registra un nuovo warning
func (l *WarningLog) Add(kind WarningKind, subject, format string, args ...any) {
	w := Warning{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
	l.list = append(l.list, w)
	l.logger.Warn(w.Message, zap.String("kind", string(kind)), zap.String("subject", subject))
}

// Warnings restituisce i warning raccolti finora
func (l *WarningLog) Warnings() []Warning {
	return l.list
}
