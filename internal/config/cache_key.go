package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// AttemptKey returns the cache key for an attempt's session hash.
// sid is the tab-scoped session id issued at login.
func (r *CacheKeyStruct) AttemptKey(sid string) string {
	return fmt.Sprintf("attempt:%s", sid)
}

// ChatSessionsKey returns the cache key for an attempt's chat transcripts.
func (r *CacheKeyStruct) ChatSessionsKey(sid string) string {
	return fmt.Sprintf("attempt:%s:chats", sid)
}

var CacheKey = NewCacheKeyStruct()
