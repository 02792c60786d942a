// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/sleeplog/internal/metrics"
	"github.com/hitoshi/sleeplog/internal/model"
	"github.com/hitoshi/sleeplog/internal/repository"
)

// Recorder はユーザー登録に関するメトリクスの記録先。
type Recorder interface {
	RecordSubscriberRegistered()
	RecordConflict(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSubscriberRegistered() {}
func (nopRecorder) RecordConflict(string)       {}

// Service はユーザーディレクトリのサービス層。
// ユーザー名の一意性とIDによるユーザー解決を担う。
type Service struct {
	repo     repository.SubscriberRepository
	recorder Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewService(repo repository.SubscriberRepository, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{repo: repo, recorder: recorder}
}

// Register はユーザーを登録する。
// ユーザー名が既に存在する場合はConflictエラーを返す。事前チェックをすり抜けた
// 同時登録はストレージの一意性制約で検出し、同じConflictエラーに変換する。
func (s *Service) Register(ctx context.Context, username, email string) (*model.Subscriber, error) {
	existing, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザー名の確認に失敗しました: %w", err)
	}
	if existing != nil {
		s.recorder.RecordConflict(metrics.ConflictUsername)
		return nil, model.NewUsernameTakenError(username)
	}

	sub, err := s.repo.Create(ctx, username, email)
	if errors.Is(err, repository.ErrUniqueViolation) {
		slog.Warn("ユーザー名の同時登録を検出しました",
			slog.String("username", username),
		)
		s.recorder.RecordConflict(metrics.ConflictUsername)
		return nil, model.NewUsernameTakenError(username)
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.recorder.RecordSubscriberRegistered()
	slog.Info("ユーザーを登録しました",
		slog.Int64("user_id", sub.ID),
		slog.String("username", sub.Username),
	)
	return sub, nil
}

// Resolve は指定IDのユーザーを返す。存在しない場合はNotFoundエラーを返す。
func (s *Service) Resolve(ctx context.Context, id int64) (*model.Subscriber, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if sub == nil {
		return nil, model.NewSubscriberNotFoundError(id)
	}
	return sub, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す（エラーではない）。
func (s *Service) FindByUsername(ctx context.Context, username string) (*model.Subscriber, error) {
	sub, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	return sub, nil
}

// List は全ユーザーをID昇順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Subscriber, error) {
	subs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return subs, nil
}
