package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"beliefpad/api/internal/document"
	"beliefpad/api/internal/logging"
)

// WarningThreshold is the used fraction above which saves carry a warning.
const WarningThreshold = 0.8

// DefaultQuota mirrors the usual browser storage allowance.
const DefaultQuota = 5 * 1024 * 1024

// Observer is told about successful catalogue writes.
type Observer interface {
	FormSaved(ctx context.Context, key string, doc document.Document)
	FormRemoved(ctx context.Context, key string)
}

// Entry is the listing metadata of one saved form.
type Entry struct {
	Key     string    `json:"key"`
	Title   string    `json:"title"`
	Subject string    `json:"subject"`
	SavedAt time.Time `json:"savedAt"`
	HasDate bool      `json:"hasDate"`
}

// Capacity is an advisory usage estimate.
type Capacity struct {
	UsedBytes    int     `json:"usedBytes"`
	TotalBytes   int     `json:"totalBytes"`
	UsedFraction float64 `json:"usedFraction"`
	Warning      bool    `json:"warning"`
}

// Percent is UsedFraction as a percentage.
func (c Capacity) Percent() float64 {
	return c.UsedFraction * 100
}

// SaveResult reports where a document was written.
type SaveResult struct {
	Key      string   `json:"key"`
	Updated  bool     `json:"updated"`
	Capacity Capacity `json:"capacity"`
}

// Archive is a zip of every saved form.
type Archive struct {
	Filename string
	Data     []byte
	Count    int
}

// Catalogue is the keyed collection of saved session documents.
type Catalogue struct {
	kv        KV
	logger    logging.Logger
	quota     int
	now       func() time.Time
	observers []Observer
}

func NewCatalogue(kv KV, logger logging.Logger, quota int) *Catalogue {
	if logger == nil {
		logger = logging.Nop()
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	return &Catalogue{kv: kv, logger: logger, quota: quota, now: time.Now}
}

// SetClock replaces the time source used for new keys and timestamps.
func (c *Catalogue) SetClock(now func() time.Time) {
	c.now = now
}

// AddObserver registers o for save and remove notifications.
func (c *Catalogue) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// Save writes doc. When existingKey is present in storage the entry is
// overwritten in place, otherwise a new unused key is generated.
func (c *Catalogue) Save(ctx context.Context, doc document.Document, existingKey string) (SaveResult, error) {
	if err := document.ValidateForSave(doc); err != nil {
		return SaveResult{}, err
	}

	capacity, err := c.Capacity(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	if capacity.Warning {
		c.logger.Warn("store", "storage nearly full", map[string]any{
			"used_percent": fmt.Sprintf("%.2f", capacity.Percent()),
		})
	}

	now := c.now()
	key, updated := "", false
	if IsFormKey(existingKey) {
		_, present, err := c.kv.Get(ctx, existingKey)
		if err != nil {
			return SaveResult{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if present {
			key, updated = existingKey, true
		}
	}
	if key == "" {
		key, err = c.unusedKey(ctx, doc.Title, now)
		if err != nil {
			return SaveResult{}, err
		}
	}

	payload, err := document.Encode(doc, now)
	if err != nil {
		return SaveResult{}, err
	}
	if err := c.kv.Set(ctx, key, string(payload)); err != nil {
		c.logger.Error("store", "save failed", map[string]any{"key": key, "error": err.Error()})
		return SaveResult{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	c.logger.Info("store", "form saved", map[string]any{"key": key, "updated": updated})
	for _, o := range c.observers {
		o.FormSaved(ctx, key, doc)
	}
	return SaveResult{Key: key, Updated: updated, Capacity: capacity}, nil
}

// unusedKey advances the timestamp a millisecond at a time until the key is free.
func (c *Catalogue) unusedKey(ctx context.Context, title string, t time.Time) (string, error) {
	for {
		key := NewKey(title, t)
		_, taken, err := c.kv.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		if !taken {
			return key, nil
		}
		t = t.Add(time.Millisecond)
	}
}

// Load reads one saved form.
func (c *Catalogue) Load(ctx context.Context, key string) (document.Document, error) {
	record, err := c.loadRecord(ctx, key)
	if err != nil {
		return document.Document{}, err
	}
	return record.Document(), nil
}

// Raw returns the stored JSON text of key.
func (c *Catalogue) Raw(ctx context.Context, key string) (string, error) {
	if !IsFormKey(key) {
		return "", ErrNotFound
	}
	value, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (c *Catalogue) loadRecord(ctx context.Context, key string) (document.Record, error) {
	value, err := c.Raw(ctx, key)
	if err != nil {
		return document.Record{}, err
	}
	record, err := document.Decode([]byte(value))
	if err != nil {
		return document.Record{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return record, nil
}

// List returns metadata for every saved form, newest first. Entries that
// cannot be read are logged and skipped.
func (c *Catalogue) List(ctx context.Context) ([]Entry, error) {
	keys, err := c.formKeys(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		record, err := c.loadRecord(ctx, key)
		if err != nil {
			c.logger.Warn("store", "skipping unreadable form", map[string]any{"key": key, "error": err.Error()})
			continue
		}
		entry := Entry{Key: key, Title: record.Title, Subject: record.Subject}
		if _, savedAt, ok := ParseKey(key); ok {
			entry.SavedAt, entry.HasDate = savedAt, true
		} else if savedAt, err := time.Parse(time.RFC3339Nano, record.Timestamp); err == nil {
			entry.SavedAt, entry.HasDate = savedAt, true
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.HasDate != b.HasDate {
			return a.HasDate
		}
		if !a.SavedAt.Equal(b.SavedAt) {
			return a.SavedAt.After(b.SavedAt)
		}
		return a.Key < b.Key
	})
	return entries, nil
}

// Remove deletes one saved form.
func (c *Catalogue) Remove(ctx context.Context, key string) error {
	if _, err := c.Raw(ctx, key); err != nil {
		return err
	}
	if err := c.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	c.logger.Info("store", "form removed", map[string]any{"key": key})
	for _, o := range c.observers {
		o.FormRemoved(ctx, key)
	}
	return nil
}

// Clear removes every catalogue entry and returns how many were removed.
// Keys outside the catalogue prefix are left alone.
func (c *Catalogue) Clear(ctx context.Context) (int, error) {
	keys, err := c.formKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, ErrNothingToClear
	}
	removed := 0
	for _, key := range keys {
		if err := c.kv.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		removed++
		for _, o := range c.observers {
			o.FormRemoved(ctx, key)
		}
	}
	c.logger.Info("store", "forms cleared", map[string]any{"count": removed})
	return removed, nil
}

// ExportAll zips every saved form as <name>-<timestamp>.json.
func (c *Catalogue) ExportAll(ctx context.Context) (Archive, error) {
	keys, err := c.formKeys(ctx)
	if err != nil {
		return Archive{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	count := 0
	for _, key := range keys {
		value, ok, err := c.kv.Get(ctx, key)
		if err != nil || !ok {
			c.logger.Warn("store", "skipping form during export", map[string]any{"key": key})
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     ArchiveName(key),
			Method:   zip.Deflate,
			Modified: c.now(),
		})
		if err != nil {
			return Archive{}, fmt.Errorf("add %s to archive: %w", key, err)
		}
		if _, err := w.Write([]byte(value)); err != nil {
			return Archive{}, fmt.Errorf("write %s to archive: %w", key, err)
		}
		count++
	}
	if count == 0 {
		return Archive{}, ErrNothingToExport
	}
	if err := zw.Close(); err != nil {
		return Archive{}, fmt.Errorf("close archive: %w", err)
	}
	return Archive{Filename: ArchiveFilename, Data: buf.Bytes(), Count: count}, nil
}

// Capacity writes and removes a probe entry, then estimates usage as the
// total length of every key and value.
func (c *Catalogue) Capacity(ctx context.Context) (Capacity, error) {
	if err := c.kv.Set(ctx, capacityProbeKey, "test"); err != nil {
		return Capacity{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := c.kv.Delete(ctx, capacityProbeKey); err != nil {
		return Capacity{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	keys, err := c.kv.Keys(ctx)
	if err != nil {
		return Capacity{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	used := 0
	for _, key := range keys {
		value, _, err := c.kv.Get(ctx, key)
		if err != nil {
			return Capacity{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		used += len(key) + len(value)
	}
	fraction := float64(used) / float64(c.quota)
	return Capacity{
		UsedBytes:    used,
		TotalBytes:   c.quota,
		UsedFraction: fraction,
		Warning:      fraction > WarningThreshold,
	}, nil
}

func (c *Catalogue) formKeys(ctx context.Context) ([]string, error) {
	keys, err := c.kv.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if IsFormKey(key) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Documents loads every readable saved form, for reindexing.
func (c *Catalogue) Documents(ctx context.Context) (map[string]document.Document, error) {
	keys, err := c.formKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]document.Document, len(keys))
	for _, key := range keys {
		doc, err := c.Load(ctx, key)
		if err != nil {
			continue
		}
		out[key] = doc
	}
	return out, nil
}

// Title returns the saved title of key without decoding sections, or "".
func (c *Catalogue) Title(ctx context.Context, key string) string {
	record, err := c.loadRecord(ctx, key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(record.Title)
}
