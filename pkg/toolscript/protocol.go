// Package toolscript runs the external analysis tool and decodes the progress
// messages it prints, one JSON object per line, on standard output.
package toolscript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

type MessageType string

const (
	TypeProgressMessage MessageType = "progress-message"
	TypeProgress        MessageType = "progress"
)

const (
	maxLineSize = 1024 * 1024
	previewSize = 256
)

var ErrLineTooLong = errors.New("toolscript: progress line too long")

// Message is one decoded stdout line. Content stays raw until the type is known.
type Message struct {
	Type    MessageType     `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ParseLine decodes a single protocol line. Surrounding whitespace is ignored.
func ParseLine(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(bytes.TrimSpace(line), &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// Text returns the content of a progress-message.
func (m Message) Text() (string, error) {
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return "", fmt.Errorf("progress-message content: %w", err)
	}
	return s, nil
}

// Percent returns the content of a progress message, clamped to 0..100 and
// truncated to an integer.
func (m Message) Percent() (int, error) {
	var f float64
	if err := json.Unmarshal(m.Content, &f); err != nil {
		return 0, fmt.Errorf("progress content: %w", err)
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("progress content is NaN")
	}
	return int(math.Max(0, math.Min(100, f))), nil
}

// Handler receives decoded messages. Nil callbacks are skipped.
type Handler struct {
	OnMessage  func(text string)
	OnProgress func(percent int)
	// OnInvalid is called for lines that cannot be decoded; reading continues.
	OnInvalid func(line string, err error)
}

// Consume reads r line by line until EOF and dispatches every message.
// Unknown message types and blank lines are ignored. Lines longer than
// maxLineSize are reported through OnInvalid with ErrLineTooLong and skipped.
// The returned error is only ever a read error; r is drained either way.
func Consume(r io.Reader, h Handler) error {
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		line, oversized, err := readLine(br)
		switch {
		case oversized:
			h.invalid(preview(line), ErrLineTooLong)
		case len(bytes.TrimSpace(line)) > 0:
			h.dispatch(line)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			_, _ = io.Copy(io.Discard, br)
			return err
		}
	}
}

// readLine returns the next line without its terminator. An oversized line is
// read to its end; only the part read before the limit is kept.
func readLine(br *bufio.Reader) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if err == nil {
			chunk = bytes.TrimSuffix(chunk[:len(chunk)-1], []byte("\r"))
		}
		if !oversized {
			if len(line)+len(chunk) > maxLineSize {
				oversized = true
			} else {
				line = append(line, chunk...)
			}
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return bytes.TrimSuffix(line, []byte("\r")), oversized, err
		}
	}
}

func preview(line []byte) []byte {
	if len(line) > previewSize {
		return line[:previewSize]
	}
	return line
}

func (h Handler) dispatch(line []byte) {
	msg, err := ParseLine(line)
	if err != nil {
		h.invalid(line, err)
		return
	}

	switch msg.Type {
	case TypeProgressMessage:
		text, err := msg.Text()
		if err != nil {
			h.invalid(line, err)
			return
		}
		if h.OnMessage != nil {
			h.OnMessage(text)
		}
	case TypeProgress:
		p, err := msg.Percent()
		if err != nil {
			h.invalid(line, err)
			return
		}
		if h.OnProgress != nil {
			h.OnProgress(p)
		}
	}
}

func (h Handler) invalid(line []byte, err error) {
	if h.OnInvalid != nil {
		h.OnInvalid(string(line), err)
	}
}
