package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-room-api/internal/dto"
	"github.com/noah-isme/exam-room-api/internal/models"
	"github.com/noah-isme/exam-room-api/pkg/config"
	appErrors "github.com/noah-isme/exam-room-api/pkg/errors"
	"github.com/noah-isme/exam-room-api/pkg/lock"
	"github.com/noah-isme/exam-room-api/pkg/middleware/requestid"
)

type roomUsageReader interface {
	ListWithSlotUsage(ctx context.Context, exec sqlx.ExtContext, slot models.Slot) ([]models.RoomUsage, error)
}

type courseDemandReader interface {
	ListActiveByIDs(ctx context.Context, ids []string, slot models.Slot) ([]models.CourseDemand, error)
	ListNeedingAllocation(ctx context.Context, slot models.Slot) ([]models.CourseDemand, error)
}

type allocationStore interface {
	LockSlot(ctx context.Context, exec sqlx.ExtContext, slot models.Slot) error
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, allocations []models.Allocation) error
	CancelCourseSlot(ctx context.Context, exec sqlx.ExtContext, courseID string, slot models.Slot) (int64, error)
	ListBySlot(ctx context.Context, slot models.Slot) ([]models.AllocationDetail, error)
	FindConflicts(ctx context.Context, slot models.Slot, courseIDs []string) ([]models.AllocationConflict, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type summaryInvalidator interface {
	InvalidateDate(ctx context.Context, date string)
}

type allocationEventSink interface {
	Dispatch(ctx context.Context, eventType string, payload interface{})
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// AllocationServiceConfig governs solver selection.
type AllocationServiceConfig struct {
	Strategy string
}

// AllocationService runs allocation batches for exam slots.
type AllocationService struct {
	rooms       roomUsageReader
	courses     courseDemandReader
	allocations allocationStore
	tx          txProvider
	locker      lock.Locker
	summaries   summaryInvalidator
	events      allocationEventSink
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	strategy    string
	solver      combinationSolver
}

// NewAllocationService wires allocation dependencies. summaries and events may be nil.
func NewAllocationService(
	rooms roomUsageReader,
	courses courseDemandReader,
	allocations allocationStore,
	tx txProvider,
	locker lock.Locker,
	summaries summaryInvalidator,
	events allocationEventSink,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AllocationServiceConfig,
) *AllocationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocal(lock.Options{})
	}
	if cfg.Strategy != config.StrategyExact {
		cfg.Strategy = config.StrategyGreedy
	}
	return &AllocationService{
		rooms:       rooms,
		courses:     courses,
		allocations: allocations,
		tx:          tx,
		locker:      locker,
		summaries:   summaries,
		events:      events,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		strategy:    cfg.Strategy,
		solver:      newCombinationSolver(cfg.Strategy),
	}
}

// Strategy reports the configured solver strategy.
func (s *AllocationService) Strategy() string {
	return s.strategy
}

// Allocate plans and commits one allocation batch for a slot.
func (s *AllocationService) Allocate(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error) {
	slot, err := s.validateSlot(req, req.SlotRequest, "invalid allocation request")
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("slot", slot.Key()), zap.String("request_id", requestid.FromContext(ctx)))

	release, err := s.acquireSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	unlock := s.slotReleaser(ctx, slot, release)
	defer unlock()

	courses, missing, err := s.resolveCourses(ctx, req.CourseIDs, slot)
	if err != nil {
		return nil, err
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	start := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			s.metrics.ObserveAllocationBatch(s.strategy, "rolled_back", time.Since(start))
		}
	}()

	if err = s.allocations.LockSlot(ctx, tx, slot); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock slot")
		return nil, err
	}

	rooms, err := s.rooms.ListWithSlotUsage(ctx, tx, slot)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room capacity")
		return nil, err
	}

	plan, err := planBatch(courses, rooms, slot, s.solver, msgAllocationCreated)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to plan allocation batch")
		return nil, err
	}
	plan.addUnresolved(missing)

	for _, planned := range plan.courses {
		if len(planned.rows) == 0 {
			continue
		}
		if err = s.allocations.CreateBatch(ctx, tx, planned.rows); err != nil {
			log.Error("persist allocation batch failed", zap.String("course_id", planned.result.CourseID), zap.Error(err))
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist allocation batch")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation batch")
		return nil, err
	}

	resp := s.buildResponse(slot, plan, true)
	s.metrics.ObserveAllocationBatch(s.strategy, "committed", time.Since(start))
	s.metrics.RecordCourseResults(resp.Summary.Succeeded, resp.Summary.Failed, resp.Summary.TotalParticipants, resp.Summary.TotalWaste)
	log.Info("allocation batch committed",
		zap.String("batch_id", resp.BatchID),
		zap.String("strategy", s.strategy),
		zap.Int("courses", resp.Summary.TotalCourses),
		zap.Int("succeeded", resp.Summary.Succeeded),
		zap.Int("failed", resp.Summary.Failed),
		zap.Int("allocations", resp.Summary.TotalAllocations),
		zap.Int("waste", resp.Summary.TotalWaste),
	)

	unlock()
	s.afterCommit(ctx, slot.Date, EventAllocationCommitted, committedPayload(resp))
	return resp, nil
}

// Preview runs the solver for a slot without persisting anything.
func (s *AllocationService) Preview(ctx context.Context, req dto.AllocationRequest) (*dto.AllocationBatchResponse, error) {
	slot, err := s.validateSlot(req, req.SlotRequest, "invalid preview request")
	if err != nil {
		return nil, err
	}

	courses, missing, err := s.resolveCourses(ctx, req.CourseIDs, slot)
	if err != nil {
		return nil, err
	}

	rooms, err := s.rooms.ListWithSlotUsage(ctx, nil, slot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room capacity")
	}

	plan, err := planBatch(courses, rooms, slot, s.solver, msgAllocationFeasible)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to plan allocation preview")
	}
	plan.addUnresolved(missing)
	return s.buildResponse(slot, plan, false), nil
}

// CheckConflicts reports existing allocations in the slot that belong to a different candidate course.
func (s *AllocationService) CheckConflicts(ctx context.Context, req dto.ConflictCheckRequest) (*dto.ConflictReport, error) {
	slot, err := s.validateSlot(req, req.SlotRequest, "invalid conflict check request")
	if err != nil {
		return nil, err
	}
	conflicts, err := s.allocations.FindConflicts(ctx, slot, dedupe(req.CourseIDs))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
	}
	if conflicts == nil {
		conflicts = []models.AllocationConflict{}
	}
	return &dto.ConflictReport{HasConflicts: len(conflicts) > 0, Conflicts: conflicts}, nil
}

// CancelCourse cancels every active allocation of a course in a slot.
func (s *AllocationService) CancelCourse(ctx context.Context, req dto.CancelAllocationRequest) (*dto.CancelAllocationResponse, error) {
	slot, err := s.validateSlot(req, req.SlotRequest, "invalid cancel request")
	if err != nil {
		return nil, err
	}

	release, err := s.acquireSlot(ctx, slot)
	if err != nil {
		return nil, err
	}
	unlock := s.slotReleaser(ctx, slot, release)
	defer unlock()

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.allocations.LockSlot(ctx, tx, slot); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock slot")
		return nil, err
	}

	cancelled, err := s.allocations.CancelCourseSlot(ctx, tx, req.CourseID, slot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "no active allocations for course in this slot")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel allocations")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancellation")
		return nil, err
	}

	s.logger.Info("allocations cancelled", zap.String("slot", slot.Key()), zap.String("course_id", req.CourseID), zap.Int64("rows", cancelled))
	unlock()
	s.afterCommit(ctx, slot.Date, EventAllocationCancelled, AllocationCancelledPayload{CourseID: req.CourseID, Slot: slot, Cancelled: cancelled})
	return &dto.CancelAllocationResponse{CourseID: req.CourseID, Slot: slot, Cancelled: cancelled}, nil
}

// ListBySlot returns the active allocations of a slot.
func (s *AllocationService) ListBySlot(ctx context.Context, req dto.SlotRequest) (*dto.SlotAllocationsResponse, error) {
	slot, err := s.validateSlot(req, req, "invalid slot")
	if err != nil {
		return nil, err
	}
	rows, err := s.allocations.ListBySlot(ctx, slot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	if rows == nil {
		rows = []models.AllocationDetail{}
	}
	return &dto.SlotAllocationsResponse{Slot: slot, Allocations: rows}, nil
}

func (s *AllocationService) validateSlot(req interface{}, slot dto.SlotRequest, message string) (models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return canonicalSlot(slot)
}

// canonicalSlot zero-pads the slot so equal sittings share one key.
func canonicalSlot(req dto.SlotRequest) (models.Slot, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	start, err := time.Parse(clockLayout, req.StartTime)
	if err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start_time must be HH:MM")
	}
	end, err := time.Parse(clockLayout, req.EndTime)
	if err != nil {
		return models.Slot{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end_time must be HH:MM")
	}
	if !end.After(start) {
		return models.Slot{}, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return models.Slot{
		Date:      date.Format(dateLayout),
		StartTime: start.Format(clockLayout),
		EndTime:   end.Format(clockLayout),
	}, nil
}

func (s *AllocationService) acquireSlot(ctx context.Context, slot models.Slot) (lock.Release, error) {
	start := time.Now()
	release, err := s.locker.Acquire(ctx, slot.Key())
	s.metrics.ObserveSlotLock(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrWaitExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrSlotLocked.Code, appErrors.ErrSlotLocked.Status, appErrors.ErrSlotLocked.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to acquire slot lock")
	}
	return release, nil
}

// slotReleaser returns an idempotent release of the slot lock.
func (s *AllocationService) slotReleaser(ctx context.Context, slot models.Slot, release lock.Release) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release slot lock failed", zap.String("slot", slot.Key()), zap.Error(err))
			}
		})
	}
}

// resolveCourses loads the batch courses. For explicit ids it also returns, in request order,
// the ids that matched no active course.
func (s *AllocationService) resolveCourses(ctx context.Context, ids []string, slot models.Slot) ([]models.CourseDemand, []string, error) {
	if len(ids) == 0 {
		courses, err := s.courses.ListNeedingAllocation(ctx, slot)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
		}
		if len(courses) == 0 {
			return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no courses need allocation")
		}
		return courses, nil, nil
	}

	ids = dedupe(ids)
	courses, err := s.courses.ListActiveByIDs(ctx, ids, slot)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if len(courses) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active courses found for the requested ids")
	}

	found := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		found[c.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return courses, missing, nil
}

func (s *AllocationService) buildResponse(slot models.Slot, plan batchPlan, committed bool) *dto.AllocationBatchResponse {
	return &dto.AllocationBatchResponse{
		BatchID:   uuid.NewString(),
		Slot:      slot,
		Strategy:  s.strategy,
		Committed: committed,
		Results:   plan.results(),
		Summary:   plan.summary(),
	}
}

func (s *AllocationService) afterCommit(ctx context.Context, date, eventType string, payload interface{}) {
	if s.summaries != nil {
		s.summaries.InvalidateDate(ctx, date)
	}
	if s.events != nil {
		s.events.Dispatch(ctx, eventType, payload)
	}
}

func committedPayload(resp *dto.AllocationBatchResponse) AllocationCommittedPayload {
	payload := AllocationCommittedPayload{
		BatchID:      resp.BatchID,
		Slot:         resp.Slot,
		Strategy:     resp.Strategy,
		Succeeded:    resp.Summary.Succeeded,
		Failed:       resp.Summary.Failed,
		Allocations:  resp.Summary.TotalAllocations,
		Participants: resp.Summary.TotalParticipants,
		Waste:        resp.Summary.TotalWaste,
		Courses:      make([]CommittedCourseRecord, 0, len(resp.Results)),
	}
	for _, result := range resp.Results {
		record := CommittedCourseRecord{CourseID: result.CourseID, Success: result.Success}
		for _, a := range result.Assignments {
			record.RoomIDs = append(record.RoomIDs, a.RoomID)
		}
		payload.Courses = append(payload.Courses, record)
	}
	return payload
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
