package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultCodeLength  = 6
	defaultTTL         = 5 * time.Minute
	defaultMaxAttempts = 5

	dispatchTimeout = 10 * time.Second
)

// Canonical phone identity: digits only, no separators or country prefix sign.
var phonePattern = regexp.MustCompile(`^[0-9]{8,15}$`)

// Params tunes the verification state machine. Zero values fall back to the
// defaults above.
type Params struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

// Service drives the challenge lifecycle: Issued, then exactly one of
// Consumed, Expired, or Exhausted.
type Service struct {
	store      Store
	dispatcher Dispatcher
	logger     *slog.Logger

	codeLength  int
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time

	locks keyedMutex
}

// NewService builds the state machine around a challenge store and a delivery
// channel.
func NewService(store Store, dispatcher Dispatcher, logger *slog.Logger, p Params) *Service {
	if p.CodeLength <= 0 {
		p.CodeLength = defaultCodeLength
	}
	if p.TTL <= 0 {
		p.TTL = defaultTTL
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	return &Service{
		store:       store,
		dispatcher:  dispatcher,
		logger:      logger,
		codeLength:  p.CodeLength,
		ttl:         p.TTL,
		maxAttempts: p.MaxAttempts,
		now:         time.Now,
	}
}

// RequestChallenge validates the phone identity, issues a fresh challenge
// superseding any prior live one for that phone, and hands the code to the
// delivery channel without blocking on it. The caller only ever sees the
// correlation id.
func (s *Service) RequestChallenge(ctx context.Context, phone string) (string, error) {
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhoneFormat
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	now := s.now().UTC()
	ch := Challenge{
		CorrelationID: uuid.NewString(),
		Phone:         phone,
		CodeHash:      hash,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, ch); err != nil {
		return "", fmt.Errorf("save challenge: %w", err)
	}

	go s.dispatch(phone, code)

	return ch.CorrelationID, nil
}

// VerifyChallenge checks a submitted code against the challenge. Per
// correlation id it is mutually exclusive, so concurrent submissions of the
// correct code consume the challenge at most once.
func (s *Service) VerifyChallenge(ctx context.Context, correlationID, code string) (Challenge, error) {
	unlock := s.locks.lock(correlationID)
	defer unlock()

	ch, err := s.store.Find(ctx, correlationID)
	if err != nil {
		return Challenge{}, err
	}

	now := s.now().UTC()
	switch {
	case ch.Consumed:
		return Challenge{}, ErrChallengeConsumed
	case ch.Attempts >= s.maxAttempts:
		return Challenge{}, ErrChallengeExhausted
	case ch.Superseded, !now.Before(ch.ExpiresAt):
		return Challenge{}, ErrChallengeExpired
	}

	if bcrypt.CompareHashAndPassword(ch.CodeHash, []byte(code)) != nil {
		ch.Attempts++
		if err := s.store.Update(ctx, ch); err != nil {
			return Challenge{}, fmt.Errorf("record mismatch: %w", err)
		}
		if ch.Attempts >= s.maxAttempts {
			return Challenge{}, ErrChallengeExhausted
		}
		return Challenge{}, ErrCodeMismatch
	}

	ch.Consumed = true
	if err := s.store.Update(ctx, ch); err != nil {
		return Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}
	return ch, nil
}

// StartGC purges long-expired challenges on a timer until ctx is cancelled.
// Correctness never depends on it; verify checks expiry synchronously.
func (s *Service) StartGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := s.store.PurgeExpired(ctx, s.now().UTC())
				if err != nil {
					s.logger.Warn("challenge gc failed", "error", err)
					continue
				}
				if purged > 0 {
					s.logger.Debug("challenge gc", "purged", purged)
				}
			}
		}
	}()
}

func (s *Service) dispatch(phone, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := s.dispatcher.Dispatch(ctx, phone, code); err != nil {
		s.logger.Error("otp dispatch failed", "phone", phone, "error", err)
	}
}

// keyedMutex provides mutual exclusion per correlation id. Entries are
// reference counted: a waiter registers before blocking, so an entry is only
// removed once nobody holds or awaits it and two verifiers can never end up
// on separate mutexes for the same id.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id string) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*lockEntry)
	}
	e, ok := k.entries[id]
	if !ok {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, id)
		}
		k.mu.Unlock()
	}
}

func generateCode(length int) (string, error) {
	const digits = "0123456789"
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		buf[i] = digits[n.Int64()]
	}
	return string(buf), nil
}
