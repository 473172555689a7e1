package alerts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// TerminalPrompter prompts on a line-oriented terminal. EOF counts as cancel.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

func (t *TerminalPrompter) Prompt(msg string) (string, bool) {
	fmt.Fprintln(t.out, msg)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (t *TerminalPrompter) Notify(msg string) { fmt.Fprintln(t.out, msg) }

// FixedPrompter answers every prompt with a preset value and records notices.
// It backs HTTP and CLI calls where the answer arrives with the request.
type FixedPrompter struct {
	Answer    string
	Cancelled bool

	mu      sync.Mutex
	notices []string
}

func (f *FixedPrompter) Prompt(string) (string, bool) {
	if f.Cancelled {
		return "", false
	}
	return f.Answer, true
}

func (f *FixedPrompter) Notify(msg string) {
	f.mu.Lock()
	f.notices = append(f.notices, msg)
	f.mu.Unlock()
}

func (f *FixedPrompter) Notices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notices...)
}

// LogOpener records links instead of opening them.
type LogOpener struct {
	Log *zap.Logger

	mu     sync.Mutex
	opened []string
}

func (o *LogOpener) Open(_ context.Context, link string) error {
	if o.Log != nil {
		o.Log.Info("open link", zap.String("url", link))
	}
	o.mu.Lock()
	o.opened = append(o.opened, link)
	o.mu.Unlock()
	return nil
}

func (o *LogOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

// WriterOpener prints links, one per line.
type WriterOpener struct{ W io.Writer }

func (o WriterOpener) Open(_ context.Context, link string) error {
	_, err := fmt.Fprintln(o.W, link)
	return err
}

// BrowserOpener opens links in a new tab of a rod-controlled browser.
type BrowserOpener struct{ Browser *rod.Browser }

func (o BrowserOpener) Open(ctx context.Context, link string) error {
	_, err := o.Browser.Context(ctx).Page(proto.TargetCreateTarget{URL: link})
	if err != nil {
		return fmt.Errorf("open %s: %w", link, err)
	}
	return nil
}
