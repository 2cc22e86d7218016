// Package intrusion records failed unlock attempts: an append-only log entry
// per attempt, optionally with a silently captured camera frame. Recording
// happens while the vault is locked, so nothing here touches the session key,
// and no failure in this package ever surfaces into the unlock flow.
package intrusion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privault/privault/internal/common"
	"github.com/privault/privault/internal/kvstore"
	"github.com/privault/privault/internal/logging"
)

// Capturer acquires a camera frame without any visible UI. Platforms without
// camera access return common.ErrCaptureUnavailable.
type Capturer interface {
	RequestSilentCapture(ctx context.Context) ([]byte, error)
}

// IntrusionLog is one recorded failed attempt. CapturedImageRef is empty when
// no frame could be captured.
type IntrusionLog struct {
	Id                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	CapturedImageRef   string    `json:"captured_image_ref,omitempty"`
	AttemptFingerprint string    `json:"attempt_fingerprint"`
	DeviceInfo         string    `json:"device_info,omitempty"`
}

// DefaultRetention is how long entries and their images are kept.
const DefaultRetention = 90 * 24 * time.Hour

// defaultCaptureTimeout bounds how long a single capture may hold up the hook.
const defaultCaptureTimeout = 5 * time.Second

// Hook observes failed unlock attempts and records them. It satisfies
// vault.UnlockObserver.
type Hook struct {
	store      kvstore.Store
	capturer   Capturer
	deviceInfo string
	logger     logging.Logger

	captureTimeout time.Duration
	retention      time.Duration

	// now is a test seam.
	now func() time.Time

	wg sync.WaitGroup
	mu sync.Mutex
}

// NewHook builds a Hook. capturer may be nil when the platform has no camera;
// a non-positive retention selects DefaultRetention.
func NewHook(store kvstore.Store, capturer Capturer, deviceInfo string, retention time.Duration, logger logging.Logger) *Hook {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Hook{
		store:          store,
		capturer:       capturer,
		deviceInfo:     deviceInfo,
		logger:         logger,
		captureTimeout: defaultCaptureTimeout,
		retention:      retention,
		now:            time.Now,
	}
}

// OnUnlockFailed records the attempt in the background so a slow capture never
// delays the unlock flow's feedback.
func (h *Hook) OnUnlockFailed(fingerprint string) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.record(fingerprint)
	}()
}

// Wait blocks until in-flight recordings finish. Shutdown paths use it so the
// store is not torn down under a recording.
func (h *Hook) Wait() {
	h.wg.Wait()
}

// record writes one log entry. Capture failures, storage failures and missing
// capturers all degrade to a log line; the unlock flow never learns about them.
func (h *Hook) record(fingerprint string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.captureTimeout)
	defer cancel()

	entry := &IntrusionLog{
		Id:                 uuid.NewString(),
		Timestamp:          h.now(),
		AttemptFingerprint: fingerprint,
		DeviceInfo:         h.deviceInfo,
	}

	if h.capturer != nil {
		frame, err := h.capturer.RequestSilentCapture(ctx)
		switch {
		case errors.Is(err, common.ErrCaptureUnavailable):
			h.logger.Debug(ctx, "capture unavailable", "entry_id", entry.Id)
		case err != nil:
			h.logger.Warn(ctx, "capture failed", "entry_id", entry.Id, "error", err)
		default:
			ref := kvstore.IntrusionImagePrefix + entry.Id
			if err := h.store.Set(ctx, ref, frame); err != nil {
				h.logger.Warn(ctx, "failed to store captured image", "entry_id", entry.Id, "error", err)
			} else {
				entry.CapturedImageRef = ref
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		h.logger.Warn(ctx, "failed to load intrusion log", "error", err)
		return
	}
	entries = append(entries, entry)
	if err := h.save(ctx, entries); err != nil {
		h.logger.Warn(ctx, "failed to append intrusion log entry", "error", err)
		return
	}

	h.logger.Info(ctx, "intrusion attempt recorded", "entry_id", entry.Id,
		"captured", entry.CapturedImageRef != "")
}

// Entries returns the log newest first, sweeping expired entries on the way.
func (h *Hook) Entries(ctx context.Context) ([]*IntrusionLog, error) {
	if err := h.Sweep(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// Image returns the captured frame for one entry.
func (h *Hook) Image(ctx context.Context, entry *IntrusionLog) ([]byte, error) {
	if entry.CapturedImageRef == "" {
		return nil, common.ErrorNotFound
	}
	return h.store.Get(ctx, entry.CapturedImageRef)
}

// Sweep drops entries past the retention window along with their images.
func (h *Hook) Sweep(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return err
	}

	cutoff := h.now().Add(-h.retention)
	kept := entries[:0]
	var dropped []*IntrusionLog
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) {
			dropped = append(dropped, e)
			continue
		}
		kept = append(kept, e)
	}
	if len(dropped) == 0 {
		return nil
	}

	if err := h.save(ctx, kept); err != nil {
		return err
	}
	for _, e := range dropped {
		if e.CapturedImageRef == "" {
			continue
		}
		if err := h.store.Delete(ctx, e.CapturedImageRef); err != nil {
			h.logger.Warn(ctx, "failed to delete expired capture", "entry_id", e.Id, "error", err)
		}
	}

	h.logger.Info(ctx, "intrusion log swept", "dropped", len(dropped))
	return nil
}

// load and save expect h.mu to be held.

func (h *Hook) load(ctx context.Context) ([]*IntrusionLog, error) {
	raw, err := h.store.Get(ctx, kvstore.KeyIntrusionLogs)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entries []*IntrusionLog
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode intrusion log: %w", err)
	}
	return entries, nil
}

func (h *Hook) save(ctx context.Context, entries []*IntrusionLog) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return h.store.Set(ctx, kvstore.KeyIntrusionLogs, raw)
}
