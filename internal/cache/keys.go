package cache

import (
	"context"
	"strconv"
	"time"
)

// Cached entity families. Each key is "<family>:<id>".
const (
	familyUser = "user"
	familyPost = "post"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

func key(family string, id uint) string {
	return family + ":" + strconv.FormatUint(uint64(id), 10)
}

// UserKey holds a public profile.
func UserKey(userID uint) string { return key(familyUser, userID) }

// PostKey holds a post row with its like and comment counts, but not the
// per-viewer liked flag.
func PostKey(postID uint) string { return key(familyPost, postID) }

// Invalidate drops keys. Errors are counted by the client hook and otherwise
// ignored; a stale entry expires with its TTL.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_ = client.Del(ctx, keys...).Err()
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}
