package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/piano-library/internal/apperror"
	"github.com/sakif/piano-library/internal/model"
)

// DiscussionStore holds flat per-piece message threads, persisted as a
// single JSON object keyed by piece id.
type DiscussionStore struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	threads map[int][]model.Message
}

// NewDiscussionStore loads the discussions document at path. A missing file
// starts with no threads; a malformed file is an error.
func NewDiscussionStore(path string, logger *slog.Logger) (*DiscussionStore, error) {
	s := &DiscussionStore{path: path, logger: logger}

	err := readDocument(path, &s.threads)
	switch {
	case err == nil:
		logger.Info("discussions loaded",
			slog.Int("pieces", len(s.threads)), slog.String("path", path))
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("no discussions file, starting empty", slog.String("path", path))
	default:
		return nil, fmt.Errorf("loading discussions: %w", err)
	}

	if s.threads == nil {
		s.threads = make(map[int][]model.Message)
	}
	return s, nil
}

// save rewrites the discussions document. Callers must hold s.mu.
func (s *DiscussionStore) save() error {
	return writeDocument(s.path, s.threads)
}

// findMessage returns a pointer into the thread's backing array so callers
// can mutate the message in place. Callers must hold s.mu.
func (s *DiscussionStore) findMessage(pieceID int, messageID string) (*model.Message, error) {
	thread, ok := s.threads[pieceID]
	if !ok {
		return nil, apperror.NotFound("discussion", strconv.Itoa(pieceID))
	}
	for i := range thread {
		if thread[i].ID == messageID {
			return &thread[i], nil
		}
	}
	return nil, apperror.NotFound("message", messageID)
}

// copyMessage clones a message including its like and reply slices, so the
// result stays valid after the store mutex is released.
func copyMessage(m model.Message) model.Message {
	out := m
	out.Likes = make([]int, len(m.Likes))
	copy(out.Likes, m.Likes)
	out.Replies = make([]model.Reply, len(m.Replies))
	for i := range m.Replies {
		out.Replies[i] = copyReply(m.Replies[i])
	}
	return out
}

func copyReply(r model.Reply) model.Reply {
	out := r
	out.Likes = make([]int, len(r.Likes))
	copy(out.Likes, r.Likes)
	return out
}

// ForPiece returns a deep copy of the piece's message list in insertion
// order, or an empty list when nobody has posted yet.
func (s *DiscussionStore) ForPiece(_ context.Context, pieceID int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.threads[pieceID]
	out := make([]model.Message, len(thread))
	for i := range thread {
		out[i] = copyMessage(thread[i])
	}
	return out, nil
}

// AddMessage appends a new top-level message to the piece's thread, creating
// the thread if this is the first message.
func (s *DiscussionStore) AddMessage(_ context.Context, pieceID, userID int, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:        xid.New().String(),
		UserID:    userID,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Likes:     []int{},
		Replies:   []model.Reply{},
	}
	s.threads[pieceID] = append(s.threads[pieceID], msg)

	if err := s.save(); err != nil {
		return nil, err
	}
	created := copyMessage(msg)
	return &created, nil
}

// AddReply appends a reply to an existing message. Replies cannot be nested
// further.
func (s *DiscussionStore) AddReply(_ context.Context, pieceID int, messageID string, userID int, content string) (*model.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.findMessage(pieceID, messageID)
	if err != nil {
		return nil, err
	}

	reply := model.Reply{
		ID:        xid.New().String(),
		UserID:    userID,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Likes:     []int{},
	}
	msg.Replies = append(msg.Replies, reply)

	if err := s.save(); err != nil {
		return nil, err
	}
	created := copyReply(reply)
	return &created, nil
}

// ToggleLike adds userID to the message's like set if absent, removes it if
// present, and returns the updated message. Two toggles in a row are a
// no-op.
func (s *DiscussionStore) ToggleLike(_ context.Context, pieceID int, messageID string, userID int) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.findMessage(pieceID, messageID)
	if err != nil {
		return nil, err
	}

	// Build a fresh like set rather than compacting in place: previously
	// returned copies may still hold the old backing array.
	found := false
	kept := make([]int, 0, len(msg.Likes))
	for _, id := range msg.Likes {
		if id == userID {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if found {
		msg.Likes = kept
	} else {
		msg.Likes = append(msg.Likes, userID)
	}

	if err := s.save(); err != nil {
		return nil, err
	}
	updated := copyMessage(*msg)
	return &updated, nil
}
