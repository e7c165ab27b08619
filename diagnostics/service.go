// Package diagnostics wires the code table, the suggestion client and the
// history into the operations served over HTTP.
package diagnostics

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"obd-backend/codes"
	"obd-backend/diagnosis"
	"obd-backend/history"
	"obd-backend/pkg/log"
)

// Suggester returns the assistant's answer for a record; *suggestion.Client
// implements it.
type Suggester interface {
	Suggest(ctx context.Context, rec diagnosis.Record) (string, error)
}

// Service is the application context, built once at startup and shared by
// every request.
type Service struct {
	codes     *codes.Table
	suggester Suggester
	history   *history.Store
	reporter  *history.Reporter
}

func NewService(tbl *codes.Table, s Suggester, h *history.Store, r *history.Reporter) *Service {
	if tbl == nil {
		tbl = codes.New()
	}
	if h == nil {
		h = history.NewStore()
	}
	return &Service{codes: tbl, suggester: s, history: h, reporter: r}
}

// Diagnose assembles the record, asks for a suggestion and appends the pair
// to the history once the suggestion is known. Nothing is appended when the
// suggestion call itself fails.
func (s *Service) Diagnose(ctx context.Context, in diagnosis.Input) (history.Entry, error) {
	rec, err := diagnosis.Assemble(s.codes, in)
	if err != nil {
		return history.Entry{}, err
	}
	text, err := s.suggester.Suggest(ctx, rec)
	if err != nil {
		return history.Entry{}, fmt.Errorf("suggest: %w", err)
	}
	entry := s.history.Append(history.Entry{Diagnosis: rec, Suggestion: text})
	log.Info("diagnosis recorded",
		zap.String("entry", entry.ID),
		zap.String("method", rec.DiagnosticMethod),
		zap.Int("history", s.history.Len()))
	return entry, nil
}

func (s *Service) SearchCode(code string) string { return s.codes.Search(code) }

func (s *Service) Codes() []codes.Entry { return s.codes.All() }

func (s *Service) History() []history.Entry { return s.history.All() }

func (s *Service) GenerateReport() (string, error) { return s.reporter.Generate(s.history) }

func (s *Service) CodeCount() int { return s.codes.Len() }
