package service

import (
	"context"
	"encoding/json"
	"examina_backend/internal/model"
	"examina_backend/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionKey struct {
	studentID uint
	examID    uint
}

// fakeCompletionTx 内存版提交事务，记录表和考试表共享同一存储
type fakeCompletionTx struct {
	exams   *fakeExamStore
	records map[completionKey]*model.MockExamCompletion
	nextID  uint
}

func newFakeCompletionTx(exams *fakeExamStore) *fakeCompletionTx {
	return &fakeCompletionTx{exams: exams, records: map[completionKey]*model.MockExamCompletion{}, nextID: 1}
}

func (f *fakeCompletionTx) InTransaction(fn func(store repository.CompletionTxStore) error) error {
	return fn(f)
}

func (f *fakeCompletionTx) FindActiveForUpdate(studentID, examID uint) (*model.MockExamCompletion, error) {
	rec, ok := f.records[completionKey{studentID, examID}]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeCompletionTx) Create(rec *model.MockExamCompletion) error {
	rec.ID = f.nextID
	f.nextID++
	copied := *rec
	f.records[completionKey{rec.StudentID, rec.MockExamID}] = &copied
	return nil
}

func (f *fakeCompletionTx) Save(rec *model.MockExamCompletion) error {
	copied := *rec
	f.records[completionKey{rec.StudentID, rec.MockExamID}] = &copied
	return nil
}

func (f *fakeCompletionTx) MarkExamCompleted(examID uint, completedAt time.Time) error {
	exam, ok := f.exams.exams[examID]
	if !ok {
		return nil
	}
	exam.Status = model.MockExamStatusCompleted
	exam.CompletedAt = &completedAt
	return nil
}

func (f *fakeCompletionTx) record(studentID, examID uint) *model.MockExamCompletion {
	return f.records[completionKey{studentID, examID}]
}

func newSubmissionFixture(t *testing.T) (*SubmissionService, *fakeExamStore, *fakeCompletionTx, uint) {
	t.Helper()
	store := newFakeExamStore()
	now := time.Now()
	expires := now.Add(3 * time.Hour)
	exam := &model.MockExam{
		StudentID:  1,
		Name:       "进行中的考试",
		TotalScore: 100,
		Status:     model.MockExamStatusInProgress,
		StartedAt:  &now,
		ExpiresAt:  &expires,
	}
	require.NoError(t, store.Create(exam))

	tx := newFakeCompletionTx(store)
	return NewSubmissionService(store, tx), store, tx, exam.ID
}

func intPtr(v int) *int { return &v }

func TestSubmitInsertsFirstResult(t *testing.T) {
	svc, store, tx, examID := newSubmissionFixture(t)

	outcome, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{
		Score:           80,
		MaxScore:        100,
		DurationSeconds: intPtr(3600),
	})
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.Equal(t, 80.0, outcome.Score)

	rec := tx.record(1, examID)
	require.NotNil(t, rec)
	assert.Equal(t, model.CompletionStatusCompleted, rec.Status)
	assert.Equal(t, 80.0, rec.Score)
	assert.Equal(t, 80.0, rec.CompletionPercentage)
	assert.True(t, rec.IsActive)

	// 考试实例同步转为已完成
	assert.Equal(t, model.MockExamStatusCompleted, store.exams[examID].Status)
	assert.NotNil(t, store.exams[examID].CompletedAt)
}

func TestSubmitRejectsUnknownExam(t *testing.T) {
	svc, _, _, _ := newSubmissionFixture(t)

	outcome, err := svc.Submit(context.Background(), 1, 999, SubmitScoreRequest{Score: 50})
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, SubmitReasonNotFound, outcome.Reason)
}

func TestSubmitRejectsForeignExam(t *testing.T) {
	svc, _, tx, examID := newSubmissionFixture(t)

	outcome, err := svc.Submit(context.Background(), 2, examID, SubmitScoreRequest{Score: 50})
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, SubmitReasonUnauthorized, outcome.Reason)
	assert.Nil(t, tx.record(2, examID))
}

func TestSubmitRejectsWrongState(t *testing.T) {
	svc, store, _, examID := newSubmissionFixture(t)
	store.exams[examID].Status = model.MockExamStatusCreated

	outcome, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: 50})
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, SubmitReasonWrongState, outcome.Reason)
}

func TestSubmitRejectsLazilyExpiredExam(t *testing.T) {
	svc, store, _, examID := newSubmissionFixture(t)
	past := time.Now().Add(-time.Minute)
	store.exams[examID].ExpiresAt = &past

	outcome, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: 50})
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, SubmitReasonWrongState, outcome.Reason)
	assert.Equal(t, model.MockExamStatusExpired, store.exams[examID].Status)
}

func TestSubmitExpiresOverdueCreatedExam(t *testing.T) {
	svc, store, _, examID := newSubmissionFixture(t)
	past := time.Now().Add(-time.Minute)
	store.exams[examID].Status = model.MockExamStatusCreated
	store.exams[examID].ExpiresAt = &past

	outcome, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: 50})
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, SubmitReasonWrongState, outcome.Reason)
	// 从未开始的实例过期后同样落库为 Expired
	assert.Equal(t, model.MockExamStatusExpired, store.exams[examID].Status)
}

func TestSubmitKeepsBestScoreRegardlessOfOrder(t *testing.T) {
	submitBoth := func(t *testing.T, first, second float64) float64 {
		svc, store, tx, examID := newSubmissionFixture(t)

		_, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: first, MaxScore: 100})
		require.NoError(t, err)

		// 第一次提交后实例已是 Completed，重试路径上重新置回进行中
		store.exams[examID].Status = model.MockExamStatusInProgress

		outcome, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: second, MaxScore: 100})
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)

		return tx.record(1, examID).Score
	}

	t.Run("高分在后", func(t *testing.T) {
		assert.Equal(t, 95.0, submitBoth(t, 80, 95))
	})
	t.Run("高分在前", func(t *testing.T) {
		assert.Equal(t, 95.0, submitBoth(t, 95, 80))
	})
}

func TestSupersedesTotalOrder(t *testing.T) {
	base := func(score float64, duration *int, payload string) *model.MockExamCompletion {
		return &model.MockExamCompletion{
			Score:           score,
			DurationSeconds: duration,
			ScoringResult:   json.RawMessage(payload),
		}
	}

	tests := []struct {
		name     string
		existing *model.MockExamCompletion
		incoming *model.MockExamCompletion
		want     bool
	}{
		{"更高分胜出", base(80, nil, ""), base(95, nil, ""), true},
		{"更低分落败", base(95, nil, ""), base(80, nil, ""), false},
		{"同分更短用时胜出", base(90, intPtr(3600), ""), base(90, intPtr(1800), ""), true},
		{"同分更长用时落败", base(90, intPtr(1800), ""), base(90, intPtr(3600), ""), false},
		{"同分缺失用时落败", base(90, intPtr(3600), ""), base(90, nil, ""), false},
		{"同分对方缺失用时胜出", base(90, nil, ""), base(90, intPtr(3600), ""), true},
		{"同分同用时非空明细胜出", base(90, intPtr(60), ""), base(90, intPtr(60), `{"a":1}`), true},
		{"同分都缺用时非空明细胜出", base(90, nil, ""), base(90, nil, `{"a":1}`), true},
		{"同分都缺用时都无明细不覆盖", base(90, nil, ""), base(90, nil, ""), false},
		{"同分同用时都有明细不覆盖", base(90, intPtr(60), `{"a":1}`), base(90, intPtr(60), `{"b":2}`), false},
		{"完全相同不覆盖", base(90, intPtr(60), ""), base(90, intPtr(60), ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, supersedes(tt.existing, tt.incoming))
		})
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	svc, store, tx, examID := newSubmissionFixture(t)
	req := SubmitScoreRequest{Score: 88, MaxScore: 100, DurationSeconds: intPtr(2400)}

	for i := 0; i < 3; i++ {
		store.exams[examID].Status = model.MockExamStatusInProgress
		outcome, err := svc.Submit(context.Background(), 1, examID, req)
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)
		assert.Equal(t, 88.0, outcome.Score)
	}

	rec := tx.record(1, examID)
	require.NotNil(t, rec)
	assert.Equal(t, 88.0, rec.Score)
	assert.Len(t, tx.records, 1, "重复提交不产生新记录")
}

func TestSubmitOverwritesInProgressRecordUnconditionally(t *testing.T) {
	svc, _, tx, examID := newSubmissionFixture(t)

	now := time.Now()
	require.NoError(t, tx.Create(&model.MockExamCompletion{
		StudentID:  1,
		MockExamID: examID,
		Status:     model.CompletionStatusInProgress,
		StartedAt:  &now,
		Score:      99,
		IsActive:   true,
	}))

	// 未完成的占位记录被无条件覆盖，即使新分数更低
	outcome, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: 42, MaxScore: 100})
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)

	rec := tx.record(1, examID)
	assert.Equal(t, model.CompletionStatusCompleted, rec.Status)
	assert.Equal(t, 42.0, rec.Score)
}

func TestSubmitDefaultsMaxScoreFromExam(t *testing.T) {
	svc, store, tx, examID := newSubmissionFixture(t)
	store.exams[examID].TotalScore = 50

	_, err := svc.Submit(context.Background(), 1, examID, SubmitScoreRequest{Score: 25})
	require.NoError(t, err)

	rec := tx.record(1, examID)
	assert.Equal(t, 50.0, rec.MaxScore)
	assert.Equal(t, 50.0, rec.CompletionPercentage)
}
