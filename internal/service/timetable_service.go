package service

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shule-ratiba-api/internal/dto"
	"github.com/noah-isme/shule-ratiba-api/internal/models"
	appErrors "github.com/noah-isme/shule-ratiba-api/pkg/errors"
)

type periodSlotLister interface {
	ListClassSlots(ctx context.Context) ([]models.PeriodSlot, error)
}

type classGroupLister interface {
	ListOrdered(ctx context.Context) ([]models.ClassGroup, error)
}

type assignmentLister interface {
	ListSchedulable(ctx context.Context) ([]models.SchedulableAssignment, error)
}

type timetableStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	AcquireRunLock(ctx context.Context, tx *sqlx.Tx) error
	DeleteAllTx(ctx context.Context, tx *sqlx.Tx) error
	BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.TimetableEntry) error
	ListByClassDetail(ctx context.Context, classGroupID string) ([]models.TimetableEntryDetail, error)
}

// TimetableServiceConfig tunes the generation engine.
type TimetableServiceConfig struct {
	EarlyPeriods   int
	MaxFinalBlanks int
}

// TimetableService runs the weekly timetable generation pipeline and serves
// timetable reads.
type TimetableService struct {
	periods     periodSlotLister
	classes     classGroupLister
	assignments assignmentLister
	timetables  timetableStore
	cache       *TimetableCache
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         TimetableServiceConfig
}

// NewTimetableService wires scheduler dependencies.
func NewTimetableService(
	periods periodSlotLister,
	classes classGroupLister,
	assignments assignmentLister,
	timetables timetableStore,
	cache *TimetableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EarlyPeriods <= 0 {
		cfg.EarlyPeriods = 4
	}
	if cfg.MaxFinalBlanks <= 0 {
		cfg.MaxFinalBlanks = 2
	}
	return &TimetableService{
		periods:     periods,
		classes:     classes,
		assignments: assignments,
		timetables:  timetables,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the whole school's weekly timetable: demand build,
// capacity normalization, priority seeding, per-slot matching and final fill,
// persisted in one transaction. The report never fails for unplaceable
// lessons, only for snapshot or persistence errors.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	started := time.Now()
	seed := defaultSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	periods, err := s.periods.ListClassSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period slots")
	}
	classes, err := s.classes.ListOrdered(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class groups")
	}
	assignments, err := s.assignments.ListSchedulable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}

	if len(periods) == 0 || len(classes) == 0 || len(assignments) == 0 {
		s.logger.Warn("timetable generation skipped, empty snapshot",
			zap.Int("periods", len(periods)),
			zap.Int("classes", len(classes)),
			zap.Int("assignments", len(assignments)),
		)
		return emptyReport(seed, time.Since(started)), nil
	}

	numDays := len(models.SchoolDays())
	demands := buildDemand(assignments, numDays)
	st := newSchedulingState(periods, classes, demands, s.cfg.EarlyPeriods, rng)

	capacity := len(periods) * numDays
	for _, class := range classes {
		if cd := demands[class.ID]; cd != nil {
			normalizeCapacity(cd, capacity, st.report)
		}
	}

	seedPriorityDaily(st)
	matchAllSlots(st)
	finalFill(st, s.cfg.MaxFinalBlanks)

	entries := st.exportEntries()

	tx, err := s.timetables.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin timetable transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.AcquireRunLock(ctx, tx); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire scheduler lock")
		return nil, err
	}
	if req.Overwrite {
		if err = s.timetables.DeleteAllTx(ctx, tx); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous timetable")
			return nil, err
		}
	}
	if err = s.timetables.BulkCreateTx(ctx, tx, entries); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable entries")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}

	report := assembleReport(st.report, seed, time.Since(started))

	if s.metrics != nil {
		s.metrics.ObserveTimetableRun(report)
	}
	if s.cache != nil {
		if cacheErr := s.cache.StoreReport(ctx, report); cacheErr != nil {
			s.logger.Warn("failed to store generation report", zap.Error(cacheErr))
		}
		if cacheErr := s.cache.BumpGeneration(ctx); cacheErr != nil {
			s.logger.Warn("failed to invalidate timetable views", zap.Error(cacheErr))
		}
	}

	s.logger.Info("timetable generated",
		zap.Int("placed", report.Placed),
		zap.Int("skipped", report.Skipped),
		zap.Int64("seed", seed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// ClassTimetable returns the placed lessons for one class grouped by day,
// served from cache when a fresh copy exists.
func (s *TimetableService) ClassTimetable(ctx context.Context, classGroupID string) (*dto.ClassTimetableView, error) {
	if classGroupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class group id is required")
	}

	if s.cache != nil {
		if view, ok := s.cache.ClassView(ctx, classGroupID); ok {
			return view, nil
		}
	}

	details, err := s.timetables.ListByClassDetail(ctx, classGroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class timetable")
	}

	view := buildClassView(classGroupID, details)
	if s.cache != nil {
		if cacheErr := s.cache.SetClassView(ctx, classGroupID, view); cacheErr != nil {
			s.logger.Warn("failed to cache class timetable", zap.Error(cacheErr))
		}
	}
	return view, nil
}

// LatestReport returns the most recent generation report, if one is stored.
func (s *TimetableService) LatestReport(ctx context.Context) (*dto.TimetableReport, error) {
	if s.cache == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no generation report available")
	}
	report, ok, err := s.cache.LatestReport(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation report")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no generation report available")
	}
	return report, nil
}

func defaultSeed() int64 {
	return time.Now().UnixMilli() & 0x7FFFFFFF
}

func emptyReport(seed int64, elapsed time.Duration) *dto.TimetableReport {
	return &dto.TimetableReport{
		Reasons:  map[string]int{},
		Meta:     dto.TimetableReportMeta{Classes: map[string]dto.ClassCapacity{}},
		Seed:     seed,
		Duration: elapsed,
	}
}

func assembleReport(r *runReport, seed int64, elapsed time.Duration) *dto.TimetableReport {
	report := &dto.TimetableReport{
		Placed:   r.placed,
		Skipped:  r.skipped,
		Reasons:  make(map[string]int, len(r.reasons)),
		Meta:     dto.TimetableReportMeta{Classes: make(map[string]dto.ClassCapacity, len(r.classes))},
		Seed:     seed,
		Duration: elapsed,
	}
	for reason, count := range r.reasons {
		report.Reasons[reason] = count
	}
	for classID, diag := range r.classes {
		report.Meta.Classes[classID] = diag
	}
	return report
}

func buildClassView(classGroupID string, details []models.TimetableEntryDetail) *dto.ClassTimetableView {
	byDay := make(map[models.Weekday][]dto.ClassTimetableCell)
	for _, d := range details {
		byDay[d.Day] = append(byDay[d.Day], dto.ClassTimetableCell{
			PeriodSlotID: d.PeriodSlotID,
			PeriodLabel:  d.PeriodLabel,
			StartTime:    d.StartTime,
			SubjectID:    d.SubjectID,
			SubjectName:  d.SubjectName,
			TeacherID:    d.TeacherID,
			TeacherName:  d.TeacherName,
		})
	}

	view := &dto.ClassTimetableView{ClassGroupID: classGroupID}
	for _, day := range models.SchoolDays() {
		view.Days = append(view.Days, dto.ClassTimetableDay{
			Day:     string(day),
			Lessons: byDay[day],
		})
	}
	return view
}
