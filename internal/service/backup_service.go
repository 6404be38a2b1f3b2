package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Staniell/MonthWise/internal/buildinfo"
	"github.com/Staniell/MonthWise/internal/metrics"
	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

// SupportedBackupVersion is the newest backup document version this build
// reads and the version it writes.
const SupportedBackupVersion = 1

// maxBackupSize bounds how much Import reads.
const maxBackupSize = 256 << 20

// Document is the JSON backup format.
type Document struct {
	Version    int          `json:"version"`
	ExportedAt time.Time    `json:"exportedAt"`
	AppVersion string       `json:"appVersion"`
	Data       DocumentData `json:"data"`
}

// DocumentData holds every row, soft-deleted ones included. Profiles and
// Settings are optional on import.
type DocumentData struct {
	AllowanceSources []models.AllowanceSource `json:"allowanceSources"`
	Categories       []models.Category        `json:"categories"`
	Months           []models.Month           `json:"months"`
	Expenses         []models.Expense         `json:"expenses"`
	Profiles         []models.Profile         `json:"profiles,omitempty"`
	Settings         []models.Setting         `json:"settings,omitempty"`
}

// ImportResult reports how many rows a restore wrote.
type ImportResult struct {
	Profiles         int
	Categories       int
	AllowanceSources int
	Months           int
	Expenses         int
	Settings         int
}

// BackupService exports and restores the whole dataset.
type BackupService struct {
	store      storage.Store
	metrics    *metrics.Metrics
	appVersion string
	now        func() time.Time
}

// NewBackupService creates a BackupService over store. m may be nil.
func NewBackupService(store storage.Store, m *metrics.Metrics) *BackupService {
	return &BackupService{
		store:      store,
		metrics:    m,
		appVersion: buildinfo.Version,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Export snapshots every table into a Document.
func (s *BackupService) Export(ctx context.Context) (*Document, error) {
	ds, err := s.store.Dump(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	doc := &Document{
		Version:    SupportedBackupVersion,
		ExportedAt: s.now(),
		AppVersion: s.appVersion,
		Data: DocumentData{
			AllowanceSources: nonNil(ds.AllowanceSources),
			Categories:       nonNil(ds.Categories),
			Months:           nonNil(ds.Months),
			Expenses:         nonNil(ds.Expenses),
			Profiles:         ds.Profiles,
			Settings:         exportableSettings(ds.Settings),
		},
	}
	s.countRows("export", doc.Data)

	slog.InfoContext(ctx, "Backup exported",
		"expenses", len(doc.Data.Expenses),
		"months", len(doc.Data.Months),
		"profiles", len(doc.Data.Profiles),
	)
	return doc, nil
}

// WriteTo exports and encodes the document to w as indented JSON.
func (s *BackupService) WriteTo(ctx context.Context, w io.Writer) error {
	doc, err := s.Export(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Import parses and validates a document from r, then replaces the stored
// dataset with it in one transaction. Nothing is written when validation
// fails.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBackupSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	if len(raw) > maxBackupSize {
		return nil, fmt.Errorf("%w: document larger than %d bytes", storage.ErrImportValidation, maxBackupSize)
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		slog.WarnContext(ctx, "Backup rejected", "error", err)
		return nil, err
	}

	ds := &storage.Dataset{
		Profiles:         doc.Data.Profiles,
		Categories:       doc.Data.Categories,
		AllowanceSources: doc.Data.AllowanceSources,
		Months:           doc.Data.Months,
		Expenses:         doc.Data.Expenses,
		Settings:         exportableSettings(doc.Data.Settings),
	}
	if err := s.store.Replace(ctx, ds); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	s.countRows("import", doc.Data)

	result := &ImportResult{
		Profiles:         len(ds.Profiles),
		Categories:       len(ds.Categories),
		AllowanceSources: len(ds.AllowanceSources),
		Months:           len(ds.Months),
		Expenses:         len(ds.Expenses),
		Settings:         len(ds.Settings),
	}
	slog.InfoContext(ctx, "Backup imported",
		"version", doc.Version,
		"app_version", doc.AppVersion,
		"expenses", result.Expenses,
		"months", result.Months,
	)
	return result, nil
}

func (s *BackupService) countRows(direction string, d DocumentData) {
	s.metrics.AddBackupRows(direction, "profile", len(d.Profiles))
	s.metrics.AddBackupRows(direction, "category", len(d.Categories))
	s.metrics.AddBackupRows(direction, "allowance_source", len(d.AllowanceSources))
	s.metrics.AddBackupRows(direction, "month", len(d.Months))
	s.metrics.AddBackupRows(direction, "expense", len(d.Expenses))
	s.metrics.AddBackupRows(direction, "setting", len(d.Settings))
}

// installationOnly settings describe this device rather than the user's data
// and never travel with a backup.
var installationOnly = map[string]bool{
	models.SettingSchemaVersion:        true,
	models.SettingAuthInstallationSalt: true,
	models.SettingAuthUnlockSecret:     true,
}

func exportableSettings(in []models.Setting) []models.Setting {
	var out []models.Setting
	for _, st := range in {
		if !installationOnly[st.Key] {
			out = append(out, st)
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ParseDocument decodes and structurally validates a backup. Every failure
// wraps storage.ErrImportValidation.
func ParseDocument(raw []byte) (*Document, error) {
	var envelope struct {
		Version    *int            `json:"version"`
		ExportedAt string          `json:"exportedAt"`
		AppVersion string          `json:"appVersion"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, invalid("not a backup document: %v", err)
	}
	if envelope.Version == nil {
		return nil, invalid("missing version")
	}
	version := *envelope.Version
	if version > SupportedBackupVersion {
		return nil, invalid("backup version %d was created by a newer app version; this app supports up to version %d",
			version, SupportedBackupVersion)
	}
	if version < 1 {
		return nil, invalid("unsupported backup version %d", version)
	}
	if isNull(envelope.Data) {
		return nil, invalid("missing data")
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Data, &sections); err != nil {
		return nil, invalid("data must be an object: %v", err)
	}
	for _, key := range []string{"allowanceSources", "categories", "months", "expenses"} {
		if isNull(sections[key]) {
			return nil, invalid("data.%s is required", key)
		}
	}

	doc := &Document{Version: version, AppVersion: envelope.AppVersion}
	if envelope.ExportedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, envelope.ExportedAt)
		if err != nil {
			return nil, invalid("exportedAt: %v", err)
		}
		doc.ExportedAt = t
	}

	dec := json.NewDecoder(bytes.NewReader(envelope.Data))
	if err := dec.Decode(&doc.Data); err != nil {
		return nil, invalid("malformed data: %v", err)
	}
	if err := validateData(&doc.Data); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateData(d *DocumentData) error {
	ids := newIDSet()
	for i, p := range d.Profiles {
		if err := ids.add("profiles", i, p.ID); err != nil {
			return err
		}
	}
	for i, c := range d.Categories {
		if err := ids.add("categories", i, c.ID); err != nil {
			return err
		}
		if c.Name == "" {
			return invalid("categories[%d]: name is required", i)
		}
	}
	for i, a := range d.AllowanceSources {
		if err := ids.add("allowanceSources", i, a.ID); err != nil {
			return err
		}
		if a.ProfileID == "" {
			return invalid("allowanceSources[%d]: profileId is required", i)
		}
		if a.AmountCents < 0 {
			return invalid("allowanceSources[%d]: amountCents must not be negative", i)
		}
	}
	for i, m := range d.Months {
		if err := ids.add("months", i, m.ID); err != nil {
			return err
		}
		if m.ProfileID == "" {
			return invalid("months[%d]: profileId is required", i)
		}
		if m.Month < 1 || m.Month > 12 {
			return invalid("months[%d]: month %d out of range", i, m.Month)
		}
		if m.AllowanceOverrideCents != nil && *m.AllowanceOverrideCents < 0 {
			return invalid("months[%d]: allowanceOverrideCents must not be negative", i)
		}
	}
	for i, e := range d.Expenses {
		if err := ids.add("expenses", i, e.ID); err != nil {
			return err
		}
		if e.MonthID == "" || e.CategoryID == "" {
			return invalid("expenses[%d]: monthId and categoryId are required", i)
		}
		if e.AmountCents <= 0 {
			return invalid("expenses[%d]: amountCents must be positive", i)
		}
		if e.ExpenseDate.IsZero() {
			return invalid("expenses[%d]: expenseDate is required", i)
		}
	}
	for i, st := range d.Settings {
		if st.Key == "" {
			return invalid("settings[%d]: key is required", i)
		}
	}
	return nil
}

type idSet map[string]map[string]bool

func newIDSet() idSet { return idSet{} }

func (s idSet) add(section string, i int, id string) error {
	if id == "" {
		return invalid("%s[%d]: id is required", section, i)
	}
	if s[section] == nil {
		s[section] = map[string]bool{}
	}
	if s[section][id] {
		return invalid("%s[%d]: duplicate id %q", section, i, id)
	}
	s[section][id] = true
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", storage.ErrImportValidation, fmt.Sprintf(format, args...))
}
