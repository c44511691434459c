package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// ProgressKey returns the key holding an actor's in-progress exam state
// (answers, bookmarks, current position). actorKey is "user:<id>" or
// "guest:<uuid>"; examSlug is derived from the exam's display title so that
// different actors on the same exam never collide.
func (r *CacheKeyStruct) ProgressKey(actorKey, examSlug string) string {
	return fmt.Sprintf("progress:%s:%s", actorKey, examSlug)
}

// TimerAnchorKey returns the key holding an actor's exam timer anchor
// (start timestamp + total duration).
func (r *CacheKeyStruct) TimerAnchorKey(actorKey, examSlug string) string {
	return fmt.Sprintf("timer:%s:%s", actorKey, examSlug)
}

// SnapshotKey returns the key holding an actor's finished-exam results
// snapshot. This is the guest fallback path for the results view.
func (r *CacheKeyStruct) SnapshotKey(actorKey, examID string) string {
	return fmt.Sprintf("snapshot:%s:exam:%s", actorKey, examID)
}

// ExamPayloadKey returns the cache key for an exam's taker-facing payload
// (questions without correctness flags).
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

var CacheKey = NewCacheKeyStruct()
