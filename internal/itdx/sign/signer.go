package sign

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Request header names expected by the exchange on every private call.
const (
	HeaderAPIKey    = "x-itdx-apikey"
	HeaderNonce     = "x-itdx-nonce"
	HeaderSignature = "x-itdx-signature"
)

// Signer produces authentication headers for private requests. The signed
// message is path + query + body + nonce, HMAC-SHA256 with the secret key,
// hex encoded. Nonces are wall-clock milliseconds and strictly increasing
// per signer, even under rapid successive calls.
type Signer struct {
	keyID  string
	secret []byte

	lastNonce     atomic.Uint64
	lastPersisted atomic.Uint64
	store         NonceStore
	storeKey      string
	log           *zap.Logger
	persistMu     sync.Mutex
	persistWarned atomic.Bool
}

// NonceStore persists the last issued nonce so a restart never reuses one.
type NonceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

func New(keyID, secret string) (*Signer, error) {
	keyID = strings.TrimSpace(keyID)
	secret = strings.TrimSpace(secret)
	if keyID == "" {
		return nil, errors.New("api key id is required")
	}
	if secret == "" {
		return nil, errors.New("api secret is required")
	}
	return &Signer{keyID: keyID, secret: []byte(secret)}, nil
}

func (s *Signer) SetLogger(log *zap.Logger) {
	s.log = log
}

func (s *Signer) KeyID() string {
	return s.keyID
}

// Headers returns the full auth header set for one request. Empty strings
// stand in for missing query or body parts.
func (s *Signer) Headers(path, query, body string) map[string]string {
	nonce := strconv.FormatUint(s.nextNonce(), 10)
	return map[string]string{
		HeaderAPIKey:    s.keyID,
		HeaderNonce:     nonce,
		HeaderSignature: s.Signature(path, query, body, nonce),
	}
}

// Signature is pure given its nonce; all impurity lives in nonce generation.
func (s *Signer) Signature(path, query, body, nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path + query + body + nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// InitNonceStore seeds the nonce sequence from persisted state and enables
// persistence of every nonce issued afterwards.
func (s *Signer) InitNonceStore(ctx context.Context, store NonceStore) error {
	if store == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	key := "signer:nonce:" + strings.ToLower(s.keyID)
	seed := uint64(time.Now().UnixMilli())
	if raw, ok, err := store.Get(ctx, key); err != nil {
		return err
	} else if ok {
		parsed, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid stored nonce %q: %w", raw, err)
		}
		if parsed > seed {
			seed = parsed
		}
	}
	if current := s.lastNonce.Load(); current > seed {
		seed = current
	}
	s.store = store
	s.storeKey = key
	s.lastNonce.Store(seed)
	s.lastPersisted.Store(seed)
	return nil
}

func (s *Signer) nextNonce() uint64 {
	now := uint64(time.Now().UnixMilli())
	for {
		prev := s.lastNonce.Load()
		next := now
		if prev >= next {
			next = prev + 1
		}
		if s.lastNonce.CompareAndSwap(prev, next) {
			s.persistNonce(next)
			return next
		}
	}
}

func (s *Signer) persistNonce(nonce uint64) {
	if s.store == nil || s.storeKey == "" {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if nonce <= s.lastPersisted.Load() {
		return
	}
	if err := s.store.Set(context.Background(), s.storeKey, strconv.FormatUint(nonce, 10)); err != nil {
		s.logPersistError(err)
		return
	}
	s.lastPersisted.Store(nonce)
	s.persistWarned.Store(false)
}

func (s *Signer) logPersistError(err error) {
	if s.log == nil {
		return
	}
	if s.persistWarned.CompareAndSwap(false, true) {
		s.log.Warn("nonce persistence failed", zap.String("nonce_key", s.storeKey), zap.Error(err))
	}
}
