// Package alerts stores the farmer's phone number and sends weather alerts as
// WhatsApp links, optionally mirrored onto the MQTT broker.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/logging"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dedup"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/localstore"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/rabbitmq"
)

// PhoneKey is the storage key of the farmer's number.
const PhoneKey = "farmer_phone"

const (
	DefaultTopicPrefix = "alerts/weather"
	DefaultDedupTTL    = 10 * time.Minute
)

const (
	PhonePrompt  = "Enter your phone number for weather alerts (with country code, e.g. 919812345678):"
	PhoneSaved   = "Phone number saved! You will receive weather alerts via SMS."
	PhoneFailed  = "Could not save phone number. Please try again."
	whatsAppBase = "https://wa.me/"
)

// Messages are the canned alerts GetWeatherAlerts picks from.
var Messages = []string{
	"Rain expected in next 2 hours. Cover your crops.",
	"High temperature alert. Increase irrigation.",
	"Wind speed high. Secure your farm equipment.",
	"Frost warning tonight. Protect tender crops.",
	"Humidity high. Watch for fungal diseases.",
}

// Prompter asks the user for input and shows notices.
type Prompter interface {
	// Prompt returns false when the user cancels.
	Prompt(msg string) (string, bool)
	Notify(msg string)
}

// Opener opens a link in a new browsing context.
type Opener interface {
	Open(ctx context.Context, link string) error
}

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Alert is the broker payload of a sent alert.
type Alert struct {
	ID       string    `json:"id"`
	Phone    string    `json:"phone"`
	District string    `json:"district"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

type Config struct {
	Store       Store
	Opener      Opener
	Publisher   rabbitmq.IPublisher // nil disables broker publication
	TopicPrefix string
	Dedup       *dedup.Deduper
	Rand        *rand.Rand
	Logger      *zap.Logger
}

type Service struct {
	store     Store
	opener    Opener
	publisher rabbitmq.IPublisher
	prefix    string
	dedup     *dedup.Deduper
	log       *zap.Logger
	now       func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

func New(cfg Config) *Service {
	s := &Service{
		store:     cfg.Store,
		opener:    cfg.Opener,
		publisher: cfg.Publisher,
		prefix:    strings.TrimSuffix(cfg.TopicPrefix, "/"),
		dedup:     cfg.Dedup,
		log:       cfg.Logger,
		now:       time.Now,
		rand:      cfg.Rand,
	}
	if s.prefix == "" {
		s.prefix = DefaultTopicPrefix
	}
	if s.dedup == nil {
		s.dedup = dedup.New(DefaultDedupTTL, 0)
	}
	s.log = logging.OrNop(s.log)
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// CollectPhone asks for the phone number and stores it. A cancelled or empty
// answer leaves the stored number untouched.
func (s *Service) CollectPhone(ctx context.Context, p Prompter) {
	phone, ok := p.Prompt(PhonePrompt)
	if !ok || phone == "" {
		return
	}
	if s.store == nil {
		p.Notify(PhoneFailed)
		return
	}
	if err := s.store.Set(ctx, PhoneKey, phone); err != nil {
		s.log.Warn("save phone number", zap.Error(err))
		p.Notify(PhoneFailed)
		return
	}
	p.Notify(PhoneSaved)
}

// Phone returns the stored number, "" when none is saved.
func (s *Service) Phone(ctx context.Context) string {
	if s.store == nil {
		return ""
	}
	phone, err := s.store.Get(ctx, PhoneKey)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			s.log.Warn("read phone number", zap.Error(err))
		}
		return ""
	}
	return phone
}

// WhatsAppLink builds the wa.me link carrying text.
func WhatsAppLink(phone, text string) string {
	return whatsAppBase + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// SendWeatherAlert opens a WhatsApp link with the alert for district. It
// reports false when no phone number is stored.
func (s *Service) SendWeatherAlert(ctx context.Context, district, message string) bool {
	phone := s.Phone(ctx)
	if phone == "" {
		return false
	}
	text := "Weather Alert for " + district + ": " + message
	s.log.Info("SMS alert", zap.String("phone", phone), zap.String("text", text))

	if s.opener != nil {
		if err := s.opener.Open(ctx, WhatsAppLink(phone, text)); err != nil {
			s.log.Warn("open whatsapp link", zap.Error(err))
		}
	}
	s.publish(phone, district, message)
	return true
}

// GetWeatherAlerts sends one of Messages at random and returns it.
func (s *Service) GetWeatherAlerts(ctx context.Context, district string) string {
	s.randMu.Lock()
	msg := Messages[s.rand.Intn(len(Messages))]
	s.randMu.Unlock()
	s.SendWeatherAlert(ctx, district, msg)
	return msg
}

// Topic is the broker topic for district alerts.
func (s *Service) Topic(district string) string {
	return s.prefix + "/" + topicSegment(district)
}

func (s *Service) publish(phone, district, message string) {
	if s.publisher == nil {
		return
	}
	if !s.dedup.ShouldProcess(dedup.Key(phone, district, message)) {
		s.log.Debug("duplicate alert suppressed", zap.String("district", district))
		return
	}
	payload, err := json.Marshal(Alert{
		ID:       uuid.NewString(),
		Phone:    phone,
		District: district,
		Message:  message,
		SentAt:   s.now().UTC(),
	})
	if err != nil {
		s.log.Error("encode alert", zap.Error(err))
		return
	}
	topic := s.Topic(district)
	if err := s.publisher.Publish(topic, payload); err != nil {
		s.log.Warn("publish alert", zap.String("topic", topic), zap.Error(err))
	}
}

func topicSegment(district string) string {
	seg := strings.ToLower(strings.TrimSpace(district))
	seg = strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_").Replace(seg)
	if seg == "" {
		return "unknown"
	}
	return seg
}
