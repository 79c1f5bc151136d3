package middleware

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/futig/news-rag/internal/telegram/render"
)

const (
	warningInterval   = 30 * time.Second
	inactiveThreshold = time.Hour
)

type userLimit struct {
	limiter      *rate.Limiter
	lastSeen     time.Time
	warningsSent int
	lastWarning  time.Time
}

// RateLimiterMiddleware drops updates from users exceeding their per-minute
// question budget and warns them, at most once per warning interval.
type RateLimiterMiddleware struct {
	mu        sync.Mutex
	limits    map[int64]*userLimit
	limit     rate.Limit
	burst     int
	sender    Sender
	// Minimum gap between two warnings to the same user.
	warnEvery time.Duration
	now       func() time.Time
}

func NewRateLimiterMiddleware(requestsPerMinute, burst int, sender Sender) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		limits:    make(map[int64]*userLimit),
		limit:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:     max(burst, 1),
		sender:    sender,
		warnEvery: warningInterval,
		now:       time.Now,
	}
}

func (rl *RateLimiterMiddleware) Handle(ctx context.Context, update tgbotapi.Update, next Next) {
	userID, chatID := updateIDs(update)
	if userID == 0 {
		next(ctx, update)
		return
	}

	allowed, warning := rl.allow(userID)
	if allowed {
		next(ctx, update)
		return
	}

	ctxzap.Warn(ctx, "rate limit exceeded")
	if warning == "" || chatID == 0 {
		return
	}
	if _, err := rl.sender.Send(tgbotapi.NewMessage(chatID, warning)); err != nil {
		ctxzap.Error(ctx, "failed to send rate limit warning", zap.Error(err))
	}
}

// allow reports whether the user may proceed and, if not, the warning to
// send (empty when the user was warned recently).
func (rl *RateLimiterMiddleware) allow(userID int64) (bool, string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictInactive(now)

	ul, ok := rl.limits[userID]
	if !ok {
		ul = &userLimit{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limits[userID] = ul
	}
	ul.lastSeen = now

	if ul.limiter.AllowN(now, 1) {
		ul.warningsSent = 0
		return true, ""
	}

	if now.Sub(ul.lastWarning) < rl.warnEvery {
		return false, ""
	}
	ul.warningsSent++
	ul.lastWarning = now
	if ul.warningsSent >= 3 {
		return false, render.MsgRateLimitedHard
	}
	return false, render.MsgRateLimited
}

func (rl *RateLimiterMiddleware) evictInactive(now time.Time) {
	for id, ul := range rl.limits {
		if now.Sub(ul.lastSeen) > inactiveThreshold {
			delete(rl.limits, id)
		}
	}
}
