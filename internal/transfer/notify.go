package transfer

import "sync"

// Notifier receives user-facing messages, as opposed to log lines.
type Notifier interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	Success(msg string)
}

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Info(string)    {}
func (NopNotifier) Warning(string) {}
func (NopNotifier) Error(string)   {}
func (NopNotifier) Success(string) {}

// Message is one notification recorded by a Recorder.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Recorder keeps every notification in order. The native host uses it to
// return the messages of a call with its result.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
	r.mu.Unlock()
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *Recorder) Info(msg string)    { r.add("info", msg) }
func (r *Recorder) Warning(msg string) { r.add("warning", msg) }
func (r *Recorder) Error(msg string)   { r.add("error", msg) }
func (r *Recorder) Success(msg string) { r.add("success", msg) }

// Levels returns the level of every recorded message.
func (r *Recorder) Levels() []string {
	msgs := r.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Level
	}
	return out
}
