package subscribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"tickrx/internal/logger"
	"tickrx/internal/push/dingtalk"
	"tickrx/internal/store"
)

var ErrInvalid = errors.New("invalid payload")

type Request struct {
	Email  string `json:"email" validate:"required,email,max=254"`
	Source string `json:"source" validate:"max=64"`
	// Website is a honeypot field. Real users never fill it in.
	Website string `json:"website"`
}

type Result struct {
	Skipped bool
	Created bool
}

type Repository interface {
	InsertSubscriber(ctx context.Context, sub store.Subscriber) (bool, error)
}

type Notifier interface {
	SendMarkdown(ctx context.Context, title, markdown string) (*dingtalk.Response, error)
}

type Service struct {
	repo     Repository
	notifier Notifier
	validate *validator.Validate
	log      *logger.Logger
}

// New returns a signup service. notifier may be nil.
func New(repo Repository, notifier Notifier, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		validate: validator.New(),
		log:      log.WithField("component", "subscribe"),
	}
}

func (s *Service) Subscribe(ctx context.Context, req Request, userAgent string) (Result, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Source = strings.TrimSpace(req.Source)
	if err := s.validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if strings.TrimSpace(req.Website) != "" {
		s.log.WithField("source", req.Source).Info("honeypot hit, signup skipped")
		return Result{Skipped: true}, nil
	}

	created, err := s.repo.InsertSubscriber(ctx, store.Subscriber{
		Email:     req.Email,
		UserAgent: userAgent,
		Source:    req.Source,
	})
	if err != nil {
		return Result{}, fmt.Errorf("save subscriber: %w", err)
	}
	if !created {
		s.log.Debug("subscriber already present")
		return Result{}, nil
	}

	s.notify(ctx, req)
	return Result{Created: true}, nil
}

func (s *Service) notify(ctx context.Context, req Request) {
	if s.notifier == nil {
		return
	}
	source := req.Source
	if source == "" {
		source = "unknown"
	}
	msg := fmt.Sprintf("### TickrX new subscriber\n\n- email: %s\n- source: %s", req.Email, source)
	if _, err := s.notifier.SendMarkdown(ctx, "TickrX new subscriber", msg); err != nil {
		s.log.WithError(err).Warn("subscriber notification failed")
	}
}
