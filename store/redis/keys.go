package redis

import (
	"fmt"

	"github.com/itsanji/pocker-winner-bot/poker"
)

// sessionKey returns the Redis key holding a SessionRecord
func (s *Storage) sessionKey(id poker.SessionID) string {
	return fmt.Sprintf("%s:session:%s", s.cfg.KeyPrefix, id)
}

// sessionsIndexKey returns the Redis key for the LIST of session IDs, oldest first
func (s *Storage) sessionsIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", s.cfg.KeyPrefix)
}

// eventsKey returns the Redis key for the LIST of a session's events, in Seq order
func (s *Storage) eventsKey(id poker.SessionID) string {
	return fmt.Sprintf("%s:events:%s", s.cfg.KeyPrefix, id)
}
