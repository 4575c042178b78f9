package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	answer   *domain.Answer
	err      error
	question string
}

func (m *mockQueryService) Answer(_ context.Context, question string) (*domain.Answer, error) {
	m.question = question
	return m.answer, m.err
}

// mockStatus is a mock implementation of driving.IndexStatus.
type mockStatus struct {
	ready   bool
	entries int
}

func (m *mockStatus) Ready() bool  { return m.ready }
func (m *mockStatus) Entries() int { return m.entries }

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) { return m.settings, m.err }
func (m *mockSettingsService) Set(_, _ string) error             { return m.err }
func (m *mockSettingsService) Keys() []string                    { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings   { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ConfigPath() string                { return "" }
