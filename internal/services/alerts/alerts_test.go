package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/localstore"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.msgs = append(f.msgs, published{topic, payload})
	return f.err
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }
func (brokenStore) Set(context.Context, string, string) error   { return errors.New("disk gone") }

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	st, err := localstore.Open(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCollectPhone(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	svc := New(Config{Store: st})

	p := &FixedPrompter{Answer: "919812345678"}
	svc.CollectPhone(ctx, p)
	assert.Equal(t, []string{PhoneSaved}, p.Notices())
	assert.Equal(t, "919812345678", svc.Phone(ctx))

	// cancel and empty answers keep the saved number and say nothing
	cancelled := &FixedPrompter{Cancelled: true}
	svc.CollectPhone(ctx, cancelled)
	empty := &FixedPrompter{}
	svc.CollectPhone(ctx, empty)
	assert.Empty(t, cancelled.Notices())
	assert.Empty(t, empty.Notices())
	assert.Equal(t, "919812345678", svc.Phone(ctx))
}

func TestCollectPhoneStorageFailure(t *testing.T) {
	svc := New(Config{Store: brokenStore{}})
	p := &FixedPrompter{Answer: "911234"}

	svc.CollectPhone(context.Background(), p)

	assert.Equal(t, []string{PhoneFailed}, p.Notices())
	assert.Empty(t, svc.Phone(context.Background()))
}

func TestTerminalPrompter(t *testing.T) {
	var out strings.Builder
	p := NewTerminalPrompter(strings.NewReader(" 919812345678 \n"), &out)

	v, ok := p.Prompt(PhonePrompt)
	assert.True(t, ok)
	assert.Equal(t, "919812345678", v)

	_, ok = p.Prompt(PhonePrompt)
	assert.False(t, ok, "EOF cancels")
	assert.Equal(t, strings.Repeat(PhonePrompt+"\n", 2), out.String())
}

func TestSendWeatherAlertWithoutPhone(t *testing.T) {
	opener := &LogOpener{}
	pub := &fakePublisher{}
	svc := New(Config{Store: openStore(t), Opener: opener, Publisher: pub})

	assert.False(t, svc.SendWeatherAlert(context.Background(), "Moga", Messages[0]))
	assert.Empty(t, opener.Opened())
	assert.Empty(t, pub.msgs)
}

func TestSendWeatherAlertOpensWhatsApp(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	require.NoError(t, st.Set(ctx, PhoneKey, "919812345678"))
	opener := &LogOpener{}
	svc := New(Config{Store: st, Opener: opener})

	require.True(t, svc.SendWeatherAlert(ctx, "Moga", "Frost & fog tonight."))

	links := opener.Opened()
	require.Len(t, links, 1)
	u, err := url.Parse(links[0])
	require.NoError(t, err)
	assert.Equal(t, "wa.me", u.Host)
	assert.Equal(t, "/919812345678", u.Path)
	assert.Equal(t, "Weather Alert for Moga: Frost & fog tonight.", u.Query().Get("text"))
	assert.NotContains(t, links[0], "+")
}

func TestAlertPublishedOnceWithinWindow(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	require.NoError(t, st.Set(ctx, PhoneKey, "919812345678"))
	pub := &fakePublisher{}
	svc := New(Config{Store: st, Publisher: pub, TopicPrefix: "alerts/weather/"})

	svc.SendWeatherAlert(ctx, "Sri Muktsar Sahib", Messages[1])
	svc.SendWeatherAlert(ctx, "Sri Muktsar Sahib", Messages[1])
	svc.SendWeatherAlert(ctx, "Sri Muktsar Sahib", Messages[2])

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "alerts/weather/sri_muktsar_sahib", pub.msgs[0].topic)

	var a Alert
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &a))
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "919812345678", a.Phone)
	assert.Equal(t, "Sri Muktsar Sahib", a.District)
	assert.Equal(t, Messages[1], a.Message)
	assert.False(t, a.SentAt.IsZero())
}

func TestPublishFailureDoesNotFailSend(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	require.NoError(t, st.Set(ctx, PhoneKey, "91"))
	svc := New(Config{Store: st, Publisher: &fakePublisher{err: errors.New("broker down")}})

	assert.True(t, svc.SendWeatherAlert(ctx, "Moga", Messages[0]))
}

func TestGetWeatherAlertsPicksCannedMessage(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	require.NoError(t, st.Set(ctx, PhoneKey, "919812345678"))
	opener := &LogOpener{}
	svc := New(Config{Store: st, Opener: opener, Rand: rand.New(rand.NewSource(7))})

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		msg := svc.GetWeatherAlerts(ctx, "Ludhiana")
		assert.Contains(t, Messages, msg)
		seen[msg] = true
	}
	assert.Len(t, seen, len(Messages))
	assert.Len(t, opener.Opened(), 200)
}

func TestTopicSegment(t *testing.T) {
	assert.Equal(t, "unknown", topicSegment("  "))
	assert.Equal(t, "a_b_c", topicSegment("A/B#C"))
}
