// Package telemetry содержит Prometheus-метрики модерации.
package telemetry

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"twitch-chat-guard/model"
)

var (
	once sync.Once

	// MessagesTotal — принятые сообщения чата по каналам.
	MessagesTotal *prometheus.CounterVec
	// SpamTotal — сообщения, признанные спамом.
	SpamTotal *prometheus.CounterVec
	// SpamScore — распределение оценок классификатора.
	SpamScore prometheus.Histogram
	// ActionsTotal — отправленные команды модерации по типу и признаку автоматичности.
	ActionsTotal *prometheus.CounterVec
	// ActionsFailed — команды, не отправленные из-за закрытого соединения.
	ActionsFailed *prometheus.CounterVec
	// StatusTransitions — переходы состояния соединения.
	StatusTransitions *prometheus.CounterVec
	// ConnectionStatus — текущее состояние соединения, числовое значение model.ConnectionStatus.
	ConnectionStatus *prometheus.GaugeVec
	// StorageDropped — события, отброшенные из-за переполненной очереди записи.
	StorageDropped prometheus.Counter
)

// Init регистрирует метрики (идемпотентно).
func Init() {
	once.Do(func() {
		MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatguard_messages_total", Help: "Chat messages received"}, []string{"channel"})
		SpamTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatguard_spam_total", Help: "Chat messages classified as spam"}, []string{"channel"})
		SpamScore = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatguard_spam_score", Help: "Classifier score per message", Buckets: prometheus.LinearBuckets(10, 10, 10)})
		ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatguard_actions_total", Help: "Moderation commands sent"}, []string{"channel", "type", "automatic"})
		ActionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatguard_actions_failed_total", Help: "Moderation commands dropped because the connection was not open"}, []string{"channel", "type"})
		StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatguard_status_transitions_total", Help: "Connection status transitions"}, []string{"channel", "status"})
		ConnectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "chatguard_connection_status", Help: "Current connection status: 0=disconnected 1=connecting 2=connected 3=error"}, []string{"channel"})
		StorageDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chatguard_storage_dropped_total", Help: "Chat events dropped because the storage queue was full"})
	})
}

// ObserveMessage учитывает сообщение и его оценку.
func ObserveMessage(channel string, c model.Classification) {
	if MessagesTotal == nil {
		return
	}
	MessagesTotal.WithLabelValues(channel).Inc()
	SpamScore.Observe(float64(c.Score))
	if c.IsSpam {
		SpamTotal.WithLabelValues(channel).Inc()
	}
}

// ObserveAction учитывает отправку модерационной команды.
func ObserveAction(a model.ModerationAction, sent bool) {
	if ActionsTotal == nil {
		return
	}
	if !sent {
		ActionsFailed.WithLabelValues(a.Channel, string(a.Type)).Inc()
		return
	}
	ActionsTotal.WithLabelValues(a.Channel, string(a.Type), strconv.FormatBool(a.Automatic)).Inc()
}

// ObserveStatus учитывает смену состояния соединения.
func ObserveStatus(channel string, s model.ConnectionStatus) {
	if StatusTransitions == nil {
		return
	}
	StatusTransitions.WithLabelValues(channel, s.String()).Inc()
	ConnectionStatus.WithLabelValues(channel).Set(float64(s))
}

// ObserveStorageDrop учитывает событие, не попавшее в очередь записи.
func ObserveStorageDrop() {
	if StorageDropped != nil {
		StorageDropped.Inc()
	}
}
