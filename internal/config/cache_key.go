package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptMetaKey returns the cache key holding a student's submission id and end time for a test
func (r *CacheKeyStruct) AttemptMetaKey(userID, testID string) string {
	return fmt.Sprintf("attempt:%s:%s:meta", userID, testID)
}

// AttemptAnswersKey returns the cache key for a student's answers hash for a test
func (r *CacheKeyStruct) AttemptAnswersKey(userID, testID string) string {
	return fmt.Sprintf("attempt:%s:%s:answers", userID, testID)
}

// AuthTokenKey returns the cache key for the signed-in user's bearer token
func (r *CacheKeyStruct) AuthTokenKey() string {
	return "auth:token"
}

// AuthUserKey returns the cache key for the signed-in user's profile
func (r *CacheKeyStruct) AuthUserKey() string {
	return "auth:user"
}

var CacheKey = NewCacheKeyStruct()
